package store

import (
	"database/sql"
	"fmt"

	"github.com/edustack/valsync/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanRequest scans a ValidationRequest from sql.Rows.
func scanRequest(rows *sql.Rows) (models.ValidationRequest, error) {
	var req models.ValidationRequest
	var userName, role, payloadJSON, lastError sql.NullString
	err := rows.Scan(
		&req.ID, &req.Kind, &req.ItemID, &req.Action,
		&req.Actor.UserID, &userName, &role,
		&payloadJSON, &req.EnqueuedAt, &req.Status, &req.RetryCount, &lastError,
	)
	if err != nil {
		return req, fmt.Errorf("scan validation request failed: %w", err)
	}
	req.Actor.UserName = userName.String
	req.Actor.Role = role.String
	req.PayloadJSON = payloadJSON.String
	req.LastError = lastError.String
	return req, nil
}

// scanRecord scans a HistoryRecord from sql.Rows.
func scanRecord(rows *sql.Rows) (models.HistoryRecord, error) {
	var rec models.HistoryRecord
	var userName, role, comment sql.NullString
	err := rows.Scan(
		&rec.ID, &rec.ItemID, &rec.Kind, &rec.Action,
		&rec.Actor.UserID, &userName, &role,
		&rec.Timestamp, &comment, &rec.Origin,
	)
	if err != nil {
		return rec, fmt.Errorf("scan history record failed: %w", err)
	}
	rec.Actor.UserName = userName.String
	rec.Actor.Role = role.String
	rec.Comment = comment.String
	return rec, nil
}
