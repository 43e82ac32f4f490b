package repository

import (
	"encoding/json"
	"fmt"
	"io"

	"medqueue/pkg/model"
)

// MemorySeed is the fixture format accepted by MemoryDirectory.Load.
type MemorySeed struct {
	Departments []model.Department `json:"departments"`
	Doctors     []model.Doctor     `json:"doctors"`
	Patients    []model.Patient    `json:"patients"`
}

// Load reads a JSON MemorySeed and adds every record. Nothing is added when
// the fixture is invalid.
func (d *MemoryDirectory) Load(r io.Reader) error {
	var seed MemorySeed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("decode memory seed: %w", err)
	}

	departments := make(map[string]bool, len(seed.Departments))
	for _, dept := range seed.Departments {
		if dept.ID == "" {
			return fmt.Errorf("memory seed: department %q has no id", dept.Name)
		}
		departments[dept.ID] = true
	}
	for _, doc := range seed.Doctors {
		if doc.ID == "" || !departments[doc.DepartmentID] {
			return fmt.Errorf("memory seed: doctor %q needs an id and a seeded department", doc.ID)
		}
	}
	for i := range seed.Patients {
		p := &seed.Patients[i]
		if p.ID == "" || !departments[p.DepartmentID] {
			return fmt.Errorf("memory seed: patient %q needs an id and a seeded department", p.ID)
		}
		if err := d.validator.ValidatePatient(p); err != nil {
			return fmt.Errorf("memory seed: patient %s: %w", p.ID, err)
		}
	}

	for i := range seed.Departments {
		d.AddDepartment(&seed.Departments[i])
	}
	for i := range seed.Doctors {
		d.AddDoctor(&seed.Doctors[i])
	}
	for i := range seed.Patients {
		d.AddPatient(&seed.Patients[i])
	}
	return nil
}
