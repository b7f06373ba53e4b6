package models

import (
	"errors"
	"strings"
	"testing"
)

func TestPayloadKinds(t *testing.T) {
	cases := []struct {
		payload Payload
		kind    ValidationKind
	}{
		{PedagogicalRecordPayload{}, KindPedagogicalRecord},
		{JournalEntryPayload{}, KindJournalEntry},
		{ReportCardPayload{}, KindReportCard},
		{CertificatePayload{}, KindCertificate},
	}
	for _, c := range cases {
		if c.payload.Kind() != c.kind {
			t.Errorf("expected kind %s, got %s", c.kind, c.payload.Kind())
		}
	}
}

func TestValidateCommentLength(t *testing.T) {
	ok := ReportCardPayload{Comment: "All grades confirmed."}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	long := ReportCardPayload{Comment: strings.Repeat("x", MaxCommentLength+1)}
	if err := long.Validate(); !errors.Is(err, ErrCommentTooLong) {
		t.Errorf("expected ErrCommentTooLong, got %v", err)
	}
}

func TestValidateForActionRejectRequiresComment(t *testing.T) {
	err := ValidateForAction(ReportCardPayload{}, ActionReject)
	if !errors.Is(err, ErrEmptyRejectReason) {
		t.Errorf("expected ErrEmptyRejectReason, got %v", err)
	}

	err = ValidateForAction(ReportCardPayload{Comment: "missing math grade"}, ActionReject)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateForActionSignRequiresSignature(t *testing.T) {
	err := ValidateForAction(CertificatePayload{}, ActionSign)
	if !errors.Is(err, ErrMissingSignature) {
		t.Errorf("expected ErrMissingSignature, got %v", err)
	}

	err = ValidateForAction(CertificatePayload{Signature: "c2lnbmF0dXJl"}, ActionSign)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Approve does not need a signature.
	err = ValidateForAction(CertificatePayload{}, ActionApprove)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSignatureTooLong(t *testing.T) {
	p := CertificatePayload{Signature: strings.Repeat("A", MaxSignatureLength+1)}
	if err := p.Validate(); !errors.Is(err, ErrSignatureTooLong) {
		t.Errorf("expected ErrSignatureTooLong, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := JournalEntryPayload{Comment: "week reviewed", WeekLabel: "2026-W03"}
	data, err := EncodePayload(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodePayload(KindJournalEntry, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := decoded.(JournalEntryPayload)
	if !ok {
		t.Fatalf("expected JournalEntryPayload, got %T", decoded)
	}
	if got != original {
		t.Errorf("round trip mismatch: expected %+v, got %+v", original, got)
	}
}

func TestDecodePayloadUnknownKind(t *testing.T) {
	_, err := DecodePayload("spreadsheet", `{}`)
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestDecodePayloadEmptyDocument(t *testing.T) {
	p, err := DecodePayload(KindReportCard, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DisplayComment() != "" {
		t.Errorf("expected empty comment, got %q", p.DisplayComment())
	}
}
