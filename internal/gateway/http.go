// Package gateway provides the HTTP client implementation of the remote
// validation gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/edustack/valsync/internal/models"
)

// maxErrorBodyBytes bounds how much of an error response body is kept for
// diagnostics.
const maxErrorBodyBytes = 2048

// Compile-time check that HTTPGateway implements Gateway.
var _ Gateway = (*HTTPGateway)(nil)

// HTTPGateway submits validation requests to the school-management backend
// over HTTP. One endpoint per record type, action in the path:
//
//	POST {base}/validations/{kind}/{itemID}/{action}
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a gateway for the given base URL. If client is nil,
// http.DefaultClient is used; per-submission timeouts come from the caller's
// context, not the client.
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Submit delivers one validation request and classifies the response:
// 2xx success, 409/422 permanent rejection, anything else transient.
func (g *HTTPGateway) Submit(ctx context.Context, req models.ValidationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal validation request %s: %w", req.ID, err)
	}

	url := fmt.Sprintf("%s/validations/%s/%s/%s", g.baseURL, req.Kind, req.ItemID, req.Action)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request %s: %w", req.ID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// The server deduplicates replays of the same logical request by this key.
	httpReq.Header.Set("Idempotency-Key", req.ID)

	slog.Debug("HTTPGateway.Submit: sending request", "id", req.ID, "kind", req.Kind, "itemID", req.ItemID, "action", req.Action)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		slog.Error("HTTPGateway.Submit: request failed", "id", req.ID, "error", err)
		return fmt.Errorf("submit validation %s: %w", req.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.Debug("HTTPGateway.Submit: request confirmed", "id", req.ID, "status", resp.StatusCode)
		return nil
	}

	msg := readErrorBody(resp.Body)
	gwErr := &Error{
		StatusCode: resp.StatusCode,
		Permanent:  resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity,
		Message:    msg,
	}
	slog.Warn("HTTPGateway.Submit: request not accepted", "id", req.ID, "status", resp.StatusCode, "permanent", gwErr.Permanent)
	return gwErr
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
