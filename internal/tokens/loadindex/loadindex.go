// Package loadindex picks the doctor a new patient is routed to.
package loadindex

import (
	"context"

	"medqueue/internal/tokens/repository"
	"medqueue/pkg/model"
)

// Index reads doctor load through the directory. Reads are best-effort:
// two concurrent new patients may both be routed to the same doctor.
type Index struct {
	doctors repository.DoctorDirectory
}

func New(doctors repository.DoctorDirectory) *Index {
	return &Index{doctors: doctors}
}

// LeastLoadedDoctor returns the doctor of departmentID with the fewest active
// patients, lowest id first on ties. ErrDoctorNotFound when the department has none.
func (i *Index) LeastLoadedDoctor(ctx context.Context, departmentID string) (*model.Doctor, error) {
	return i.doctors.FindOne(ctx, repository.DoctorQuery{
		DepartmentID:        departmentID,
		SortByLoadAscending: true,
	})
}
