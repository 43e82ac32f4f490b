package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/model"
)

// MemoryDirectory backs the patient, doctor and department ports for local
// runs and tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	patients    map[string]*model.Patient
	doctors     map[string]*model.Doctor
	departments map[string]*model.Department
	validator   *validator.TokenValidator

	// SaveHook, when set, runs before a patient is saved and can fail it.
	SaveHook func(p *model.Patient, opts SaveOptions) error
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		patients:    make(map[string]*model.Patient),
		doctors:     make(map[string]*model.Doctor),
		departments: make(map[string]*model.Department),
		validator:   validator.NewTokenValidator(),
	}
}

func (d *MemoryDirectory) AddPatient(p *model.Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *p
	d.patients[p.ID] = &cp
}

func (d *MemoryDirectory) AddDoctor(doc *model.Doctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *doc
	d.doctors[doc.ID] = &cp
}

func (d *MemoryDirectory) AddDepartment(dept *model.Department) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *dept
	d.departments[dept.ID] = &cp
}

func (d *MemoryDirectory) Patients() PatientDirectory       { return memoryPatients{d} }
func (d *MemoryDirectory) Doctors() DoctorDirectory         { return memoryDoctors{d} }
func (d *MemoryDirectory) Departments() DepartmentDirectory { return memoryDepartments{d} }

type memoryPatients struct{ d *MemoryDirectory }

func (m memoryPatients) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	m.d.mu.RLock()
	defer m.d.mu.RUnlock()

	p, ok := m.d.patients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrPatientNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m memoryPatients) Save(ctx context.Context, p *model.Patient, opts SaveOptions) error {
	if !opts.SkipValidation {
		if err := m.d.validator.ValidatePatient(p); err != nil {
			return fmt.Errorf("%w: %w", tokenserrors.ErrProfileLink, err)
		}
	}
	if m.d.SaveHook != nil {
		if err := m.d.SaveHook(p, opts); err != nil {
			return fmt.Errorf("%w: %w", tokenserrors.ErrProfileLink, err)
		}
	}

	m.d.mu.Lock()
	defer m.d.mu.Unlock()

	if _, ok := m.d.patients[p.ID]; !ok {
		return fmt.Errorf("%w: %s", tokenserrors.ErrPatientNotFound, p.ID)
	}
	cp := *p
	m.d.patients[p.ID] = &cp
	return nil
}

type memoryDoctors struct{ d *MemoryDirectory }

func (m memoryDoctors) FindOne(ctx context.Context, q DoctorQuery) (*model.Doctor, error) {
	m.d.mu.RLock()
	defer m.d.mu.RUnlock()

	var candidates []*model.Doctor
	for _, doc := range m.d.doctors {
		if doc.DepartmentID == q.DepartmentID {
			candidates = append(candidates, doc)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: department %s", tokenserrors.ErrDoctorNotFound, q.DepartmentID)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if q.SortByLoadAscending && candidates[i].ActivePatients != candidates[j].ActivePatients {
			return candidates[i].ActivePatients < candidates[j].ActivePatients
		}
		return candidates[i].ID < candidates[j].ID
	})

	cp := *candidates[0]
	return &cp, nil
}

func (m memoryDoctors) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	m.d.mu.RLock()
	defer m.d.mu.RUnlock()

	doc, ok := m.d.doctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrDoctorNotFound, id)
	}
	cp := *doc
	return &cp, nil
}

type memoryDepartments struct{ d *MemoryDirectory }

func (m memoryDepartments) FindByID(ctx context.Context, id string) (*model.Department, error) {
	m.d.mu.RLock()
	defer m.d.mu.RUnlock()

	dept, ok := m.d.departments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrDepartmentNotFound, id)
	}
	cp := *dept
	return &cp, nil
}
