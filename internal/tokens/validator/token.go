package validator

import (
	"errors"
	"fmt"
	"strings"

	"medqueue/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Details renders the errors for apperrors.Validation.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, e := range v {
		details[e.Field] = e.Message
	}
	return details
}

type TokenValidator struct {
	validate *validator.Validate
}

func NewTokenValidator() *TokenValidator {
	v := validator.New()
	_ = v.RegisterValidation("day_key", validateDayKey)

	return &TokenValidator{
		validate: v,
	}
}

func validateDayKey(fl validator.FieldLevel) bool {
	return model.DayKey(fl.Field().String()).Valid()
}

func (v *TokenValidator) ValidateEntry(entry *model.TokenLedgerEntry) error {
	if err := v.validateStruct(entry); err != nil {
		return err
	}

	var errs ValidationErrors
	if len(entry.Issued) != entry.SequenceNumber {
		errs = append(errs, ValidationError{
			Field:   "issued",
			Message: fmt.Sprintf("holds %d tickets for sequence number %d", len(entry.Issued), entry.SequenceNumber),
		})
	}
	seen := make(map[string]bool, len(entry.Issued))
	for _, issue := range entry.Issued {
		if seen[issue.PatientID] {
			errs = append(errs, ValidationError{
				Field:   "issued",
				Message: fmt.Sprintf("patient %s holds more than one ticket", issue.PatientID),
			})
		}
		seen[issue.PatientID] = true
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *TokenValidator) ValidatePatient(p *model.Patient) error {
	return v.validateStruct(p)
}

func (v *TokenValidator) ValidateDayKey(day string) (model.DayKey, error) {
	if err := v.validate.Var(day, "required,day_key"); err != nil {
		return "", ValidationErrors{{Field: "day", Message: "must be a date in YYYY-MM-DD format"}}
	}
	return model.DayKey(day), nil
}

func (v *TokenValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}
	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: message(err),
		})
	}
	return out
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "mongodb":
		return "must be a valid ObjectID"
	case "day_key":
		return "must be a date in YYYY-MM-DD format"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}
