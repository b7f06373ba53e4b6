// Package api provides HTTP handlers for valsync endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/edustack/valsync/internal/models"
)

// enqueueRequest is the JSON body for POST /validations.
type enqueueRequest struct {
	Kind    models.ValidationKind   `json:"kind"`
	ItemID  string                  `json:"item_id"`
	Action  models.ValidationAction `json:"action"`
	Actor   models.Actor            `json:"actor"`
	Payload json.RawMessage         `json:"payload,omitempty"`
}

// statsResult is returned by GET /stats.
type statsResult struct {
	PendingCount int  `json:"pending_count"`
	FailedCount  int  `json:"failed_count"`
	HistoryCount int  `json:"history_count"`
	Reachable    bool `json:"reachable"`
}

func (s *Server) enqueueHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.enqueueHandler: processing enqueue request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("Server.enqueueHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	payload, err := models.DecodePayload(body.Kind, string(body.Payload))
	if err != nil {
		slog.Warn("Server.enqueueHandler: payload rejected", "kind", body.Kind, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	id, err := s.engine.Enqueue(body.Kind, body.ItemID, body.Action, body.Actor, payload)
	if err != nil {
		slog.Warn("Server.enqueueHandler: enqueue rejected", "kind", body.Kind, "itemID", body.ItemID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.enqueueHandler: validation queued", "id", id, "kind", body.Kind, "itemID", body.ItemID)
	writeJSONResponse(w, http.StatusAccepted, models.Queued(id))
}

func (s *Server) queueHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(s.engine.Queue()))
	case http.MethodDelete:
		// Clearing the queue loses unsent actions; require explicit confirmation.
		if r.URL.Query().Get("confirm") != "true" {
			slog.Warn("Server.queueHandler: clear requested without confirmation")
			writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrConfirmRequired.Error()))
			return
		}
		if err := s.engine.ClearQueue(); err != nil {
			slog.Error("Server.queueHandler: clear failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to clear queue"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Queue cleared", nil))
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) retryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.RetryFailed(); err != nil {
		slog.Error("Server.retryHandler: retry failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset failed requests"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Failed requests reset", nil))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid limit parameter"))
				return
			}
			limit = n
		}
		writeJSONResponse(w, http.StatusOK, models.Success(s.engine.History(limit)))
	case http.MethodDelete:
		if r.URL.Query().Get("confirm") != "true" {
			slog.Warn("Server.historyHandler: clear requested without confirmation")
			writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrConfirmRequired.Error()))
			return
		}
		if err := s.engine.ClearHistory(); err != nil {
			slog.Error("Server.historyHandler: clear failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to clear history"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("History cleared", nil))
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats := statsResult{
		PendingCount: s.engine.PendingCount(),
		FailedCount:  s.engine.FailedCount(),
		HistoryCount: s.engine.HistoryCount(),
		Reachable:    s.monitor.IsReachable(),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.engine.ForceSync()
	writeJSONResponse(w, http.StatusAccepted, models.SuccessWithMessage("Sync requested", nil))
}
