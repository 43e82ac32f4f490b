// Package events publishes token lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"medqueue/pkg/model"
)

const (
	TypeTokenIssued       = "token.issued"
	TypeProfileLinkFailed = "token.profile_link_failed"
	TypeDayClosed         = "ledger.day_closed"

	SchemaVersion = "1"
	Source        = "medqueue-tokens"
)

type TokenIssued struct {
	LedgerID     string       `json:"ledger_id"`
	DayKey       model.DayKey `json:"day_key"`
	PatientID    string       `json:"patient_id"`
	TicketNumber int          `json:"ticket_number"`
	TicketCode   string       `json:"ticket_code"`
	DepartmentID string       `json:"department_id"`
	DoctorID     *string      `json:"doctor_id,omitempty"`
	Outcome      string       `json:"outcome"`
	IssuedAt     time.Time    `json:"issued_at"`
}

// ProfileLinkFailed carries everything needed to redo the patient profile
// update that failed after a ticket was assigned.
type ProfileLinkFailed struct {
	LedgerID     string       `json:"ledger_id"`
	DayKey       model.DayKey `json:"day_key"`
	PatientID    string       `json:"patient_id"`
	TicketNumber int          `json:"ticket_number"`
	DoctorID     *string      `json:"doctor_id,omitempty"`
	Reason       string       `json:"reason"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

type DayClosed struct {
	LedgerID      string       `json:"ledger_id,omitempty"`
	DayKey        model.DayKey `json:"day_key"`
	Token         string       `json:"token,omitempty"`
	FinalSequence int          `json:"final_sequence"`
	TicketsIssued int          `json:"tickets_issued"`
	ClosedAt      time.Time    `json:"closed_at"`
}

func (e ProfileLinkFailed) Ref() *model.TokenRef {
	return &model.TokenRef{
		LedgerID:     e.LedgerID,
		DayKey:       e.DayKey,
		TicketNumber: e.TicketNumber,
		DoctorID:     e.DoctorID,
	}
}

type Publisher interface {
	TokenIssued(ctx context.Context, event TokenIssued) error
	ProfileLinkFailed(ctx context.Context, event ProfileLinkFailed) error
	DayClosed(ctx context.Context, event DayClosed) error
}

// Noop discards every event. Used when Kafka is disabled.
type Noop struct{}

func (Noop) TokenIssued(context.Context, TokenIssued) error             { return nil }
func (Noop) ProfileLinkFailed(context.Context, ProfileLinkFailed) error { return nil }
func (Noop) DayClosed(context.Context, DayClosed) error                 { return nil }
