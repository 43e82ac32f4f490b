package errors

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrDoctorNotFound     = errors.New("doctor not found")

	// ErrNoLedger means no entry exists yet for the requested day.
	ErrNoLedger = errors.New("no token ledger entry for day")
	// ErrAlreadyExists is returned by CreateToday when another request created
	// the day's entry first. The issuer recovers from it; it never reaches callers.
	ErrAlreadyExists = errors.New("token ledger entry already exists for day")

	ErrStorageUnavailable = errors.New("token storage unavailable")
	ErrProfileLink        = errors.New("failed to link token to patient profile")

	ErrInvalidID     = errors.New("invalid ID format")
	ErrInvalidDayKey = errors.New("invalid day key")
)
