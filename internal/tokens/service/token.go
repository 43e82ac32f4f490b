package service

import (
	"context"
	"errors"
	"time"

	"medqueue/internal/tokens/clock"
	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/repository"
	"medqueue/internal/tokens/validator"
	apperrors "medqueue/pkg/errors"
	"medqueue/pkg/logger"
	"medqueue/pkg/metrics"
	"medqueue/pkg/model"
)

const issueFailedMessage = "could not issue token"

type TokenService interface {
	// IssueOrFetch returns the patient's ticket for today, assigning the next
	// number when the patient does not hold one yet.
	IssueOrFetch(ctx context.Context, patientID string) (*model.TokenLedgerEntry, error)
	// CurrentToken serves the ticket already linked on the patient's profile
	// when it belongs to today, and falls back to IssueOrFetch otherwise.
	CurrentToken(ctx context.Context, patientID string) (*model.TokenLedgerEntry, error)
	TodayLedger(ctx context.Context) (*model.TokenLedgerEntry, error)
	LedgerForDay(ctx context.Context, day string) (*model.TokenLedgerEntry, error)
}

type DoctorLoadIndex interface {
	LeastLoadedDoctor(ctx context.Context, departmentID string) (*model.Doctor, error)
}

type Dependencies struct {
	Ledger      repository.TokenLedger
	Patients    repository.PatientDirectory
	Departments repository.DepartmentDirectory
	LoadIndex   DoctorLoadIndex
	Clock       clock.Clock
	Events      events.Publisher
	Metrics     *metrics.Metrics
	Validator   *validator.TokenValidator
	Log         *logger.Logger
}

type tokenService struct {
	ledger      repository.TokenLedger
	patients    repository.PatientDirectory
	departments repository.DepartmentDirectory
	loadIndex   DoctorLoadIndex
	clock       clock.Clock
	events      events.Publisher
	metrics     *metrics.Metrics
	validator   *validator.TokenValidator
	log         *logger.Logger
}

func NewTokenService(deps Dependencies) TokenService {
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Validator == nil {
		deps.Validator = validator.NewTokenValidator()
	}
	return &tokenService{
		ledger:      deps.Ledger,
		patients:    deps.Patients,
		departments: deps.Departments,
		loadIndex:   deps.LoadIndex,
		clock:       deps.Clock,
		events:      deps.Events,
		metrics:     deps.Metrics,
		validator:   deps.Validator,
		log:         deps.Log,
	}
}

func (s *tokenService) IssueOrFetch(ctx context.Context, patientID string) (*model.TokenLedgerEntry, error) {
	start := time.Now()
	defer func() {
		s.metrics.IssueDuration.Observe(time.Since(start).Seconds())
	}()

	day := s.clock.Today()

	entry, err := s.ledger.FindToday(ctx, day)
	if err != nil && !errors.Is(err, tokenserrors.ErrNoLedger) {
		return nil, s.storageFailure("Failed to read token ledger", day, patientID, err)
	}

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, s.lookupFailure("Patient", patientID, day, err)
	}

	if _, err := s.departments.FindByID(ctx, patient.DepartmentID); err != nil {
		return nil, s.lookupFailure("Department", patient.DepartmentID, day, err)
	}

	doctorID, err := s.resolveDoctor(ctx, patient)
	if err != nil {
		return nil, s.storageFailure("Failed to resolve doctor", day, patientID, err)
	}

	outcome := metrics.OutcomeIncremented
	if entry == nil {
		entry, err = s.ledger.CreateToday(ctx, repository.CreateRequest{
			DayKey:       day,
			DepartmentID: patient.DepartmentID,
			DoctorID:     doctorID,
			PatientID:    patient.ID,
		})
		switch {
		case err == nil:
			outcome = metrics.OutcomeCreated
		case errors.Is(err, tokenserrors.ErrAlreadyExists):
			s.metrics.LedgerConflicts.Inc()
			s.log.Info("Token ledger created concurrently, falling back to increment",
				"day_key", day,
				"patient_id", patientID,
			)
			entry, err = s.ledger.FindToday(ctx, day)
			if err != nil {
				return nil, s.storageFailure("Failed to re-read token ledger after conflict", day, patientID, err)
			}
		default:
			return nil, s.storageFailure("Failed to create token ledger", day, patientID, err)
		}
	}

	if outcome != metrics.OutcomeCreated {
		if entry.ForPatient(patient.ID) {
			outcome = metrics.OutcomeRefetched
		} else {
			entry, err = s.ledger.IncrementToday(ctx, entry, repository.IssueRequest{
				PatientID: patient.ID,
				DoctorID:  doctorID,
			})
			if err != nil {
				return nil, s.storageFailure("Failed to increment token ledger", day, patientID, err)
			}
		}
	}

	s.metrics.TokensIssued.WithLabelValues(outcome).Inc()
	s.metrics.LedgerSequence.Set(float64(entry.SequenceNumber))

	linked := s.link(ctx, entry)

	if outcome != metrics.OutcomeRefetched || !refersTo(patient.CurrentToken, entry) {
		s.linkProfile(ctx, patient, entry)
	}

	if outcome != metrics.OutcomeRefetched {
		s.publishIssued(ctx, patient.ID, entry, outcome)
	}

	s.log.Info("Token issued",
		"day_key", day,
		"patient_id", patient.ID,
		"ticket_number", entry.TicketNumber,
		"sequence_number", entry.SequenceNumber,
		"outcome", outcome,
	)

	return linked, nil
}

func (s *tokenService) CurrentToken(ctx context.Context, patientID string) (*model.TokenLedgerEntry, error) {
	day := s.clock.Today()

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, s.lookupFailure("Patient", patientID, day, err)
	}

	ref := patient.CurrentToken
	if ref == nil || ref.DayKey != day {
		return s.IssueOrFetch(ctx, patientID)
	}

	entry, err := s.ledger.FindToday(ctx, day)
	if err != nil {
		if errors.Is(err, tokenserrors.ErrNoLedger) {
			return s.IssueOrFetch(ctx, patientID)
		}
		return nil, s.storageFailure("Failed to read token ledger", day, patientID, err)
	}
	if entry.ID != ref.LedgerID || !entry.ForPatient(patient.ID) {
		return s.IssueOrFetch(ctx, patientID)
	}

	s.metrics.TokensIssued.WithLabelValues(metrics.OutcomeRefetched).Inc()
	return s.link(ctx, entry), nil
}

func (s *tokenService) TodayLedger(ctx context.Context) (*model.TokenLedgerEntry, error) {
	return s.ledgerFor(ctx, s.clock.Today())
}

func (s *tokenService) LedgerForDay(ctx context.Context, day string) (*model.TokenLedgerEntry, error) {
	dayKey, err := s.validator.ValidateDayKey(day)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Invalid day", verrs.Details())
		}
		return nil, apperrors.InvalidInput("Invalid day")
	}
	return s.ledgerFor(ctx, dayKey)
}

func (s *tokenService) ledgerFor(ctx context.Context, day model.DayKey) (*model.TokenLedgerEntry, error) {
	entry, err := s.ledger.FindToday(ctx, day)
	if err != nil {
		if errors.Is(err, tokenserrors.ErrNoLedger) {
			return nil, apperrors.NotFoundWithID("Token ledger", day.String())
		}
		s.log.Error("Failed to read token ledger", "day_key", day, "error", err)
		return nil, apperrors.StorageFailure("could not read token ledger", err)
	}
	return s.link(ctx, entry), nil
}

// resolveDoctor returns nil when no doctor can be assigned; the ticket is
// still issued in that case.
func (s *tokenService) resolveDoctor(ctx context.Context, patient *model.Patient) (*string, error) {
	if !patient.IsNewPatient {
		return patient.AssignedDoctorID, nil
	}

	doctor, err := s.loadIndex.LeastLoadedDoctor(ctx, patient.DepartmentID)
	if err != nil {
		if errors.Is(err, tokenserrors.ErrDoctorNotFound) {
			s.log.Warn("No doctor available in department, issuing without doctor",
				"patient_id", patient.ID,
				"department_id", patient.DepartmentID,
			)
			return nil, nil
		}
		return nil, err
	}

	id := doctor.ID
	return &id, nil
}

func (s *tokenService) link(ctx context.Context, entry *model.TokenLedgerEntry) *model.TokenLedgerEntry {
	linked, err := s.ledger.LinkDoctor(ctx, entry)
	if err != nil {
		s.log.Warn("Failed to load doctor and department names for token",
			"ledger_id", entry.ID,
			"day_key", entry.DayKey,
			"error", err,
		)
		return entry
	}
	return linked
}

// linkProfile points the patient at the entry. A failure never revokes the
// ticket; it is recorded for the reconciler instead.
func (s *tokenService) linkProfile(ctx context.Context, patient *model.Patient, entry *model.TokenLedgerEntry) {
	ref := &model.TokenRef{
		LedgerID:     entry.ID,
		DayKey:       entry.DayKey,
		TicketNumber: entry.TicketNumber,
		DoctorID:     entry.TicketDoctorID,
	}

	updated := *patient
	updated.CurrentToken = ref
	err := s.patients.Save(ctx, &updated, repository.SaveOptions{SkipValidation: true})
	if err == nil {
		return
	}

	s.metrics.ProfileLinkFailures.Inc()
	s.log.Error("Failed to link token to patient profile",
		"patient_id", patient.ID,
		"ledger_id", entry.ID,
		"day_key", entry.DayKey,
		"ticket_number", entry.TicketNumber,
		"error", err,
	)

	event := events.ProfileLinkFailed{
		LedgerID:     entry.ID,
		DayKey:       entry.DayKey,
		PatientID:    patient.ID,
		TicketNumber: entry.TicketNumber,
		DoctorID:     entry.TicketDoctorID,
		Reason:       err.Error(),
		OccurredAt:   s.clock.Now().UTC(),
	}
	if pubErr := s.events.ProfileLinkFailed(context.WithoutCancel(ctx), event); pubErr != nil {
		s.log.Error("Failed to publish profile link failure", "patient_id", patient.ID, "error", pubErr)
	}
}

func (s *tokenService) publishIssued(ctx context.Context, patientID string, entry *model.TokenLedgerEntry, outcome string) {
	event := events.TokenIssued{
		LedgerID:     entry.ID,
		DayKey:       entry.DayKey,
		PatientID:    patientID,
		TicketNumber: entry.TicketNumber,
		TicketCode:   entry.TicketCode,
		DepartmentID: entry.DepartmentID,
		DoctorID:     entry.TicketDoctorID,
		Outcome:      outcome,
		IssuedAt:     s.clock.Now().UTC(),
	}
	if err := s.events.TokenIssued(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("Failed to publish token issued event", "day_key", entry.DayKey, "error", err)
	}
}

func (s *tokenService) lookupFailure(resource, id string, day model.DayKey, err error) error {
	if errors.Is(err, tokenserrors.ErrPatientNotFound) ||
		errors.Is(err, tokenserrors.ErrDepartmentNotFound) ||
		errors.Is(err, tokenserrors.ErrInvalidID) {
		s.log.Warn(resource+" not found for token request", "id", id, "day_key", day)
		return apperrors.NotFoundWithID(resource, id)
	}
	return s.storageFailure("Failed to load "+resource, day, id, err)
}

func (s *tokenService) storageFailure(msg string, day model.DayKey, patientID string, err error) error {
	s.metrics.TokensIssued.WithLabelValues(metrics.OutcomeFailed).Inc()
	s.log.Error(msg,
		"day_key", day,
		"patient_id", patientID,
		"error", err,
	)
	return apperrors.StorageFailure(issueFailedMessage, err)
}

func refersTo(ref *model.TokenRef, entry *model.TokenLedgerEntry) bool {
	return ref != nil && ref.LedgerID == entry.ID && ref.DayKey == entry.DayKey && ref.TicketNumber == entry.TicketNumber
}
