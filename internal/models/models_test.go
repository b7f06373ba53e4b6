package models

import "testing"

func TestIsValidKind(t *testing.T) {
	valid := []ValidationKind{KindPedagogicalRecord, KindJournalEntry, KindReportCard, KindCertificate}
	for _, k := range valid {
		if !IsValidKind(k) {
			t.Errorf("expected %s to be valid", k)
		}
	}
	invalid := []ValidationKind{"", "report", "invoice", "REPORT-CARD"}
	for _, k := range invalid {
		if IsValidKind(k) {
			t.Errorf("expected %q to be invalid", k)
		}
	}
}

func TestIsValidAction(t *testing.T) {
	valid := []ValidationAction{ActionValidate, ActionReject, ActionApprove, ActionSign}
	for _, a := range valid {
		if !IsValidAction(a) {
			t.Errorf("expected %s to be valid", a)
		}
	}
	invalid := []ValidationAction{"", "delete", "Validate"}
	for _, a := range invalid {
		if IsValidAction(a) {
			t.Errorf("expected %q to be invalid", a)
		}
	}
}
