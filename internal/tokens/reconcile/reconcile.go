// Package reconcile repairs patient profiles whose token link failed after the
// ticket was assigned.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/repository"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/kafka"
	"medqueue/pkg/logger"
	"medqueue/pkg/model"
)

type Reconciler struct {
	ledger    repository.TokenLedger
	patients  repository.PatientDirectory
	validator *validator.TokenValidator
	log       *logger.Logger
}

func NewReconciler(ledger repository.TokenLedger, patients repository.PatientDirectory, v *validator.TokenValidator, log *logger.Logger) *Reconciler {
	return &Reconciler{
		ledger:    ledger,
		patients:  patients,
		validator: v,
		log:       log,
	}
}

// Handle is a kafka.MessageHandler. Events of other types on the topic are
// acknowledged untouched.
func (r *Reconciler) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.GetEventType() != events.TypeProfileLinkFailed {
		return nil
	}

	var event events.ProfileLinkFailed
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}
	if err := r.check(event); err != nil {
		return kafka.NewPermanentError("invalid profile link event", err)
	}

	return r.Relink(ctx, event)
}

// Relink points the patient at the ticket named by event unless the profile
// already refers to it or to a later day.
func (r *Reconciler) Relink(ctx context.Context, event events.ProfileLinkFailed) error {
	patient, err := r.patients.FindByID(ctx, event.PatientID)
	if err != nil {
		return classify("load patient", err)
	}

	if stale(patient.CurrentToken, event) {
		r.log.Info("Skipping stale profile link event",
			"patient_id", event.PatientID,
			"day_key", event.DayKey,
			"ledger_id", event.LedgerID,
		)
		return nil
	}

	entry, err := r.ledger.FindToday(ctx, event.DayKey)
	if err != nil {
		return classify("load token ledger", err)
	}
	if entry.ID != event.LedgerID {
		return kafka.NewPermanentError("ledger mismatch",
			fmt.Errorf("event ledger %s, day %s has %s", event.LedgerID, event.DayKey, entry.ID))
	}
	issue, ok := entry.IssueFor(event.PatientID)
	if !ok || issue.Number != event.TicketNumber {
		return kafka.NewPermanentError("ticket not on ledger",
			fmt.Errorf("patient %s has no ticket %d on %s", event.PatientID, event.TicketNumber, event.DayKey))
	}

	ref := event.Ref()
	ref.DoctorID = issue.DoctorID
	patient.CurrentToken = ref
	if err := r.patients.Save(ctx, patient, repository.SaveOptions{SkipValidation: true}); err != nil {
		return classify("save patient", err)
	}

	r.log.Info("Patient profile relinked",
		"patient_id", event.PatientID,
		"day_key", event.DayKey,
		"ticket_number", event.TicketNumber,
	)
	return nil
}

func (r *Reconciler) check(event events.ProfileLinkFailed) error {
	if _, err := r.validator.ValidateDayKey(event.DayKey.String()); err != nil {
		return err
	}
	if event.PatientID == "" || event.LedgerID == "" || event.TicketNumber < 1 {
		return errors.New("patient_id, ledger_id and ticket_number are required")
	}
	return nil
}

func stale(ref *model.TokenRef, event events.ProfileLinkFailed) bool {
	if ref == nil {
		return false
	}
	if ref.DayKey > event.DayKey {
		return true
	}
	return ref.LedgerID == event.LedgerID && ref.TicketNumber == event.TicketNumber
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, tokenserrors.ErrStorageUnavailable):
		return kafka.NewTransientError(op, err)
	case errors.Is(err, tokenserrors.ErrProfileLink):
		return kafka.NewTransientError(op, err)
	default:
		return kafka.NewPermanentError(op, err)
	}
}
