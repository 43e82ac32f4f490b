package model

import (
	"testing"
	"time"
)

func TestDayKey_NextPrevAcrossMonth(t *testing.T) {
	d := DayKey("2026-10-31")

	if got := d.Next(); got != "2026-11-01" {
		t.Errorf("Next() = %s, want 2026-11-01", got)
	}
	if got := DayKey("2026-03-01").Prev(); got != "2026-02-28" {
		t.Errorf("Prev() = %s, want 2026-02-28", got)
	}
}

func TestParseDayKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2026-10-19", false},
		{"2026-13-01", true},
		{"19/10/2026", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseDayKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDayKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestDayKey_StartInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	start, err := DayKey("2026-10-19").Start(loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 0 || start.Location() != loc {
		t.Errorf("unexpected start %v", start)
	}
}

func TestTicketCode(t *testing.T) {
	if got := TicketCode("2026-10-19", 7); got != "20261019-007" {
		t.Errorf("TicketCode = %s", got)
	}
	if got := TicketCode("2026-10-19", 1234); got != "20261019-1234" {
		t.Errorf("TicketCode = %s", got)
	}
}

func TestTokenLedgerEntry_ForPatient(t *testing.T) {
	entry := &TokenLedgerEntry{
		DayKey: "2026-10-19",
		Issued: []TicketIssue{
			{PatientID: "a", Number: 1},
			{PatientID: "b", Number: 2},
		},
	}

	if !entry.ForPatient("b") {
		t.Fatal("expected patient b to hold a ticket")
	}
	if entry.TicketNumber != 2 || entry.TicketCode != "20261019-002" {
		t.Errorf("unexpected projection: %d %s", entry.TicketNumber, entry.TicketCode)
	}

	if entry.ForPatient("c") {
		t.Fatal("patient c holds no ticket")
	}
	if entry.TicketNumber != 0 || entry.TicketCode != "" {
		t.Error("projection should be cleared for unknown patient")
	}
}

func TestTokenLedgerEntry_CloneIsDeep(t *testing.T) {
	doc := "d1"
	entry := &TokenLedgerEntry{DoctorID: &doc, Issued: []TicketIssue{{PatientID: "a", Number: 1}}}

	c := entry.Clone()
	*c.DoctorID = "d2"
	c.Issued[0].Number = 99

	if *entry.DoctorID != "d1" || entry.Issued[0].Number != 1 {
		t.Error("clone shares state with original")
	}
}
