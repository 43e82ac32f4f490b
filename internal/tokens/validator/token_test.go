package validator

import (
	"strings"
	"testing"
	"time"

	"medqueue/pkg/model"
)

func validEntry() *model.TokenLedgerEntry {
	now := time.Now()
	return &model.TokenLedgerEntry{
		DayKey:         "2024-03-01",
		SequenceNumber: 2,
		DepartmentID:   "dept-1",
		PatientID:      "p1",
		Token:          "TKN-20240301-abc123",
		Issued: []model.TicketIssue{
			{PatientID: "p1", Number: 1, IssuedAt: now},
			{PatientID: "p2", Number: 2, IssuedAt: now},
		},
	}
}

func TestValidateEntry(t *testing.T) {
	v := NewTokenValidator()

	tests := []struct {
		name    string
		mutate  func(e *model.TokenLedgerEntry)
		wantErr string
	}{
		{"valid", func(e *model.TokenLedgerEntry) {}, ""},
		{"bad day key", func(e *model.TokenLedgerEntry) { e.DayKey = "2024/03/01" }, "YYYY-MM-DD"},
		{"bad id", func(e *model.TokenLedgerEntry) { e.ID = "nope" }, "ObjectID"},
		{"missing token", func(e *model.TokenLedgerEntry) { e.Token = "" }, "Token: is required"},
		{"issued out of step", func(e *model.TokenLedgerEntry) { e.SequenceNumber = 3 }, "holds 2 tickets"},
		{"duplicate patient", func(e *model.TokenLedgerEntry) { e.Issued[1].PatientID = "p1" }, "more than one ticket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(e)
			err := v.ValidateEntry(e)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDayKey(t *testing.T) {
	v := NewTokenValidator()

	if day, err := v.ValidateDayKey("2024-02-29"); err != nil || day != "2024-02-29" {
		t.Errorf("ValidateDayKey(leap day) = %s, %v", day, err)
	}
	if _, err := v.ValidateDayKey("2023-02-29"); err == nil {
		t.Error("expected error for non-existent date")
	}
}

func TestValidatePatient(t *testing.T) {
	v := NewTokenValidator()
	err := v.ValidatePatient(&model.Patient{Name: "A"})

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if _, ok := errs.Details()["Patient.DepartmentID"]; !ok {
		t.Errorf("missing department error: %v", errs.Details())
	}
}
