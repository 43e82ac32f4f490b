package repository

import (
	"context"

	"medqueue/pkg/model"
)

type SaveOptions struct {
	// SkipValidation persists the patient without running profile validation.
	SkipValidation bool
}

type PatientDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Patient, error)
	Save(ctx context.Context, patient *model.Patient, opts SaveOptions) error
}

type DepartmentDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Department, error)
}

type DoctorQuery struct {
	DepartmentID string
	// SortByLoadAscending orders by active patients, then id.
	SortByLoadAscending bool
}

type DoctorDirectory interface {
	FindOne(ctx context.Context, query DoctorQuery) (*model.Doctor, error)
	FindByID(ctx context.Context, id string) (*model.Doctor, error)
}
