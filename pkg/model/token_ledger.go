package model

import (
	"fmt"
	"time"
)

// TokenLedgerEntry is one day's ticket counter. Exactly one exists per DayKey.
type TokenLedgerEntry struct {
	ID             string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DayKey         DayKey        `json:"day_key" bson:"day_key" validate:"required,day_key"`
	SequenceNumber int           `json:"sequence_number" bson:"sequence_number" validate:"required,min=1"`
	DepartmentID   string        `json:"department_id" bson:"department_id" validate:"required"`
	DoctorID       *string       `json:"doctor_id" bson:"doctor_id"`
	PatientID      string        `json:"patient_id" bson:"patient_id" validate:"required"`
	Token          string        `json:"token" bson:"token" validate:"required"`
	Issued         []TicketIssue `json:"-" bson:"issued" validate:"required,min=1,dive"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at"`

	// Read-side projection, never persisted.
	DoctorName     string  `json:"doctor_name,omitempty" bson:"-"`
	DepartmentName string  `json:"department_name,omitempty" bson:"-"`
	TicketNumber   int     `json:"ticket_number,omitempty" bson:"-"`
	TicketCode     string  `json:"ticket_code,omitempty" bson:"-"`
	TicketDoctorID *string `json:"ticket_doctor_id,omitempty" bson:"-"`
}

// TicketIssue records which patient holds which number on the entry's day.
type TicketIssue struct {
	PatientID string    `json:"patient_id" bson:"patient_id" validate:"required"`
	Number    int       `json:"number" bson:"number" validate:"min=1"`
	DoctorID  *string   `json:"doctor_id,omitempty" bson:"doctor_id"`
	IssuedAt  time.Time `json:"issued_at" bson:"issued_at"`
}

// IssueFor returns the ticket held by patientID, if any.
func (e *TokenLedgerEntry) IssueFor(patientID string) (TicketIssue, bool) {
	for _, issue := range e.Issued {
		if issue.PatientID == patientID {
			return issue, true
		}
	}
	return TicketIssue{}, false
}

// ForPatient fills the ticket projection for patientID. It reports false when
// the patient holds no number on this entry.
func (e *TokenLedgerEntry) ForPatient(patientID string) bool {
	issue, ok := e.IssueFor(patientID)
	if !ok {
		e.TicketNumber = 0
		e.TicketCode = ""
		e.TicketDoctorID = nil
		return false
	}
	e.TicketNumber = issue.Number
	e.TicketCode = TicketCode(e.DayKey, issue.Number)
	e.TicketDoctorID = issue.DoctorID
	return true
}

// DisplayDoctorID is the doctor shown next to the ticket: the one assigned to
// the requesting patient, falling back to the entry's doctor.
func (e *TokenLedgerEntry) DisplayDoctorID() *string {
	if e.TicketDoctorID != nil {
		return e.TicketDoctorID
	}
	return e.DoctorID
}

// Clone returns a deep copy safe to hand out of a store.
func (e *TokenLedgerEntry) Clone() *TokenLedgerEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.DoctorID != nil {
		id := *e.DoctorID
		c.DoctorID = &id
	}
	if e.TicketDoctorID != nil {
		id := *e.TicketDoctorID
		c.TicketDoctorID = &id
	}
	c.Issued = make([]TicketIssue, len(e.Issued))
	copy(c.Issued, e.Issued)
	return &c
}

// TicketCode is the display code of a ticket, e.g. 20261019-007.
func TicketCode(day DayKey, number int) string {
	return fmt.Sprintf("%s-%03d", day.Compact(), number)
}

// TokenRef is the patient's back-reference to the ledger entry of their
// current ticket.
type TokenRef struct {
	LedgerID     string  `json:"ledger_id" bson:"ledger_id"`
	DayKey       DayKey  `json:"day_key" bson:"day_key"`
	TicketNumber int     `json:"ticket_number" bson:"ticket_number"`
	DoctorID     *string `json:"doctor_id,omitempty" bson:"doctor_id,omitempty"`
}
