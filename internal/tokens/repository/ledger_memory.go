package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryTokenLedger keeps entries in process. Writes for one DayKey are
// serialized by that day's mutex.
type MemoryTokenLedger struct {
	mu      sync.Mutex
	entries map[model.DayKey]*model.TokenLedgerEntry
	days    map[string]model.DayKey
	locks   map[model.DayKey]*dayLock

	doctors     DoctorDirectory
	departments DepartmentDirectory
	tokens      TokenGenerator
	now         func() time.Time
}

func NewMemoryTokenLedger(doctors DoctorDirectory, departments DepartmentDirectory) *MemoryTokenLedger {
	return &MemoryTokenLedger{
		entries:     make(map[model.DayKey]*model.TokenLedgerEntry),
		days:        make(map[string]model.DayKey),
		locks:       make(map[model.DayKey]*dayLock),
		doctors:     doctors,
		departments: departments,
		tokens:      NewToken,
		now:         time.Now,
	}
}

// dayLock is dropped from the ledger once no caller holds or waits on it.
type dayLock struct {
	sync.Mutex
	refs int
}

// lockDay serializes callers on day and returns the matching unlock.
func (r *MemoryTokenLedger) lockDay(day model.DayKey) func() {
	r.mu.Lock()
	lock, ok := r.locks[day]
	if !ok {
		lock = &dayLock{}
		r.locks[day] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()

		r.mu.Lock()
		defer r.mu.Unlock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, day)
		}
	}
}

func (r *MemoryTokenLedger) load(day model.DayKey) (*model.TokenLedgerEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[day]
	return entry, ok
}

func (r *MemoryTokenLedger) store(entry *model.TokenLedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.DayKey] = entry
	r.days[entry.ID] = entry.DayKey
}

func (r *MemoryTokenLedger) FindToday(ctx context.Context, day model.DayKey) (*model.TokenLedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("find token ledger entry", err)
	}

	unlock := r.lockDay(day)
	defer unlock()

	entry, ok := r.load(day)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrNoLedger, day)
	}
	return entry.Clone(), nil
}

func (r *MemoryTokenLedger) CreateToday(ctx context.Context, req CreateRequest) (*model.TokenLedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("create token ledger entry", err)
	}

	unlock := r.lockDay(req.DayKey)
	defer unlock()

	if _, ok := r.load(req.DayKey); ok {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrAlreadyExists, req.DayKey)
	}

	entry := newEntry(req, r.tokens(req.DayKey), r.now().UTC())
	entry.ID = primitive.NewObjectID().Hex()
	r.store(entry)

	created := entry.Clone()
	created.ForPatient(req.PatientID)
	return created, nil
}

func (r *MemoryTokenLedger) IncrementToday(ctx context.Context, entry *model.TokenLedgerEntry, req IssueRequest) (*model.TokenLedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("increment token ledger entry", err)
	}

	unlock := r.lockDay(entry.DayKey)
	defer unlock()

	current, ok := r.load(entry.DayKey)
	if !ok || current.ID != entry.ID {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrNoLedger, entry.DayKey)
	}

	if _, held := current.IssueFor(req.PatientID); !held {
		now := r.now().UTC()
		current.SequenceNumber++
		current.UpdatedAt = now
		current.Issued = append(current.Issued, model.TicketIssue{
			PatientID: req.PatientID,
			Number:    current.SequenceNumber,
			DoctorID:  req.DoctorID,
			IssuedAt:  now,
		})
	}

	updated := current.Clone()
	updated.ForPatient(req.PatientID)
	return updated, nil
}

func (r *MemoryTokenLedger) LinkDoctor(ctx context.Context, entry *model.TokenLedgerEntry) (*model.TokenLedgerEntry, error) {
	linked := entry.Clone()

	department, err := r.departments.FindByID(ctx, entry.DepartmentID)
	switch {
	case err == nil:
		linked.DepartmentName = department.Name
	case !errors.Is(err, tokenserrors.ErrDepartmentNotFound):
		return nil, err
	}

	if doctorID := entry.DisplayDoctorID(); doctorID != nil {
		doctor, err := r.doctors.FindByID(ctx, *doctorID)
		switch {
		case err == nil:
			linked.DoctorName = doctor.Name
		case !errors.Is(err, tokenserrors.ErrDoctorNotFound):
			return nil, err
		}
	}

	return linked, nil
}
