// Package models defines the core data structures for valsync.
//
// It includes the validation request and history record types shared across
// the engine, store, gateway, and API modules.
package models

import (
	"errors"
	"time"
)

// ValidationKind identifies the type of domain record a validation acts on.
type ValidationKind string

const (
	// KindPedagogicalRecord covers pedagogical follow-up records.
	KindPedagogicalRecord ValidationKind = "pedagogical-record"
	// KindJournalEntry covers class journal entries.
	KindJournalEntry ValidationKind = "journal-entry"
	// KindReportCard covers term report cards.
	KindReportCard ValidationKind = "report-card"
	// KindCertificate covers issued certificates.
	KindCertificate ValidationKind = "certificate"
)

// ValidationAction is the approval action applied to a record.
type ValidationAction string

const (
	ActionValidate ValidationAction = "validate"
	ActionReject   ValidationAction = "reject"
	ActionApprove  ValidationAction = "approve"
	ActionSign     ValidationAction = "sign"
)

// RequestStatus is the lifecycle state of a queued validation request.
type RequestStatus string

const (
	// StatusPending marks a request eligible for the next drain cycle.
	StatusPending RequestStatus = "pending"
	// StatusFailed marks a request that exhausted its retry budget. Failed
	// requests are excluded from automatic drains until explicitly retried.
	StatusFailed RequestStatus = "failed"
)

// HistoryOrigin distinguishes locally staged entries from confirmed ones.
type HistoryOrigin string

const (
	// OriginLocal only appears transiently in in-memory views before the
	// ledger append completes.
	OriginLocal HistoryOrigin = "local"
	// OriginSynced marks an entry confirmed by the remote gateway.
	OriginSynced HistoryOrigin = "synced"
)

// Error variables for contract violations surfaced at enqueue time.
var (
	ErrInvalidKind     = errors.New("invalid validation kind")
	ErrInvalidAction   = errors.New("invalid validation action")
	ErrEmptyItemID     = errors.New("item id cannot be empty")
	ErrMissingActor    = errors.New("actor user id is required")
	ErrNilPayload      = errors.New("payload cannot be nil")
	ErrPayloadKind     = errors.New("payload kind does not match request kind")
	ErrConfirmRequired = errors.New("destructive operation requires explicit confirmation")
)

// IsValidKind checks if the given validation kind is supported.
func IsValidKind(k ValidationKind) bool {
	switch k {
	case KindPedagogicalRecord, KindJournalEntry, KindReportCard, KindCertificate:
		return true
	default:
		return false
	}
}

// IsValidAction checks if the given validation action is supported.
func IsValidAction(a ValidationAction) bool {
	switch a {
	case ActionValidate, ActionReject, ActionApprove, ActionSign:
		return true
	default:
		return false
	}
}

// Actor is the user who performed a validation action, captured at enqueue
// time and never re-derived later.
type Actor struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ValidationRequest is a durable queue entry awaiting delivery to the remote
// validation gateway.
type ValidationRequest struct {
	ID          string           `json:"id"`
	Kind        ValidationKind   `json:"kind"`
	ItemID      string           `json:"item_id"`
	Action      ValidationAction `json:"action"`
	Actor       Actor            `json:"actor"`
	PayloadJSON string           `json:"payload_json,omitempty"`
	EnqueuedAt  time.Time        `json:"enqueued_at"`
	Status      RequestStatus    `json:"status"`
	RetryCount  int              `json:"retry_count"`
	LastError   string           `json:"last_error,omitempty"`
}

// HistoryRecord is an append-only ledger entry for a confirmed validation.
// Its ID matches the originating ValidationRequest for traceability.
type HistoryRecord struct {
	ID        string           `json:"id"`
	ItemID    string           `json:"item_id"`
	Kind      ValidationKind   `json:"kind"`
	Action    ValidationAction `json:"action"`
	Actor     Actor            `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
	Comment   string           `json:"comment,omitempty"`
	Origin    HistoryOrigin    `json:"origin"`
}
