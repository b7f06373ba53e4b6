// Package models defines payload schemas for each validation kind.
//
// Payloads are a closed tagged union keyed by ValidationKind so malformed
// action data is caught at enqueue time instead of at the gateway.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validation constants for payload content.
const (
	// MaxCommentLength is the maximum allowed length for validation comments.
	MaxCommentLength = 2000
	// MaxSignatureLength is the maximum allowed length for an encoded
	// signature blob (base64).
	MaxSignatureLength = 131072
)

var (
	ErrCommentTooLong    = errors.New("comment exceeds maximum length")
	ErrMissingSignature  = errors.New("signature is required for certificate actions")
	ErrSignatureTooLong  = errors.New("signature exceeds maximum length")
	ErrEmptyRejectReason = errors.New("a reject comment is required")
)

// Payload is the action-specific data attached to a validation request.
// Each validation kind has exactly one payload schema.
type Payload interface {
	// Kind returns the validation kind this payload belongs to.
	Kind() ValidationKind
	// Validate checks the payload against its schema.
	Validate() error
	// DisplayComment returns the subset of the payload shown in history.
	DisplayComment() string
}

// PedagogicalRecordPayload carries data for pedagogical record validations.
type PedagogicalRecordPayload struct {
	Comment string `json:"comment,omitempty"`
}

func (p PedagogicalRecordPayload) Kind() ValidationKind { return KindPedagogicalRecord }

func (p PedagogicalRecordPayload) Validate() error {
	return validateComment(p.Comment)
}

func (p PedagogicalRecordPayload) DisplayComment() string { return p.Comment }

// JournalEntryPayload carries data for class journal entry validations.
type JournalEntryPayload struct {
	Comment   string `json:"comment,omitempty"`
	WeekLabel string `json:"week_label,omitempty"`
}

func (p JournalEntryPayload) Kind() ValidationKind { return KindJournalEntry }

func (p JournalEntryPayload) Validate() error {
	return validateComment(p.Comment)
}

func (p JournalEntryPayload) DisplayComment() string { return p.Comment }

// ReportCardPayload carries data for report card validations.
type ReportCardPayload struct {
	Comment string `json:"comment,omitempty"`
	Period  string `json:"period,omitempty"`
}

func (p ReportCardPayload) Kind() ValidationKind { return KindReportCard }

func (p ReportCardPayload) Validate() error {
	return validateComment(p.Comment)
}

func (p ReportCardPayload) DisplayComment() string { return p.Comment }

// CertificatePayload carries data for certificate signing and approval.
// Signature is a base64-encoded signature blob, required for sign actions.
type CertificatePayload struct {
	Comment   string `json:"comment,omitempty"`
	Signature string `json:"signature,omitempty"`
}

func (p CertificatePayload) Kind() ValidationKind { return KindCertificate }

func (p CertificatePayload) Validate() error {
	if len(p.Signature) > MaxSignatureLength {
		return ErrSignatureTooLong
	}
	return validateComment(p.Comment)
}

func (p CertificatePayload) DisplayComment() string { return p.Comment }

// ValidateForAction applies action-specific payload rules on top of the
// per-kind schema: reject actions require a comment, certificate sign
// actions require a signature.
func ValidateForAction(p Payload, action ValidationAction) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if action == ActionReject && p.DisplayComment() == "" {
		return ErrEmptyRejectReason
	}
	if cert, ok := p.(CertificatePayload); ok && action == ActionSign && cert.Signature == "" {
		return ErrMissingSignature
	}
	return nil
}

// EncodePayload serializes a payload to its stored JSON form.
func EncodePayload(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return string(data), nil
}

// DecodePayload reverses EncodePayload for the given kind. An empty document
// decodes to the kind's zero payload.
func DecodePayload(kind ValidationKind, data string) (Payload, error) {
	if data == "" {
		data = "{}"
	}
	switch kind {
	case KindPedagogicalRecord:
		var p PedagogicalRecordPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindJournalEntry:
		var p JournalEntryPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindReportCard:
		var p ReportCardPayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindCertificate:
		var p CertificatePayload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
}

func validateComment(comment string) error {
	if len(comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}
