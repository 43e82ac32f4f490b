package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medqueue/pkg/model"

	"github.com/google/uuid"
)

const (
	LedgerCollection      = "Token_ledger"
	PatientsCollection    = "Patients"
	DoctorsCollection     = "Doctors"
	DepartmentsCollection = "Departments"

	LedgerDayKeyIndex = "uniq_day_key"
	LedgerTokenIndex  = "uniq_token"

	maxTokenAttempts = 3
)

// TokenLedger stores one counter entry per DayKey.
type TokenLedger interface {
	// FindToday returns the entry for day or ErrNoLedger.
	FindToday(ctx context.Context, day model.DayKey) (*model.TokenLedgerEntry, error)
	// CreateToday inserts the day's entry with sequence number 1 held by the
	// creator. Returns ErrAlreadyExists when the day already has an entry.
	CreateToday(ctx context.Context, req CreateRequest) (*model.TokenLedgerEntry, error)
	// IncrementToday atomically assigns the next number to req.PatientID. A
	// patient that already holds a number that day gets it back unchanged.
	IncrementToday(ctx context.Context, entry *model.TokenLedgerEntry, req IssueRequest) (*model.TokenLedgerEntry, error)
	// LinkDoctor fills the doctor and department display names.
	LinkDoctor(ctx context.Context, entry *model.TokenLedgerEntry) (*model.TokenLedgerEntry, error)
}

type CreateRequest struct {
	DayKey       model.DayKey
	DepartmentID string
	DoctorID     *string
	PatientID    string
}

type IssueRequest struct {
	PatientID string
	DoctorID  *string
}

// TokenGenerator produces the display token of a new ledger entry.
type TokenGenerator func(day model.DayKey) string

// NewToken renders TKN-<YYYYMMDD>-<6 hex>.
func NewToken(day model.DayKey) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("TKN-%s-%s", day.Compact(), suffix)
}

func newEntry(req CreateRequest, token string, now time.Time) *model.TokenLedgerEntry {
	return &model.TokenLedgerEntry{
		DayKey:         req.DayKey,
		SequenceNumber: 1,
		DepartmentID:   req.DepartmentID,
		DoctorID:       req.DoctorID,
		PatientID:      req.PatientID,
		Token:          token,
		Issued: []model.TicketIssue{{
			PatientID: req.PatientID,
			Number:    1,
			DoctorID:  req.DoctorID,
			IssuedAt:  now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
