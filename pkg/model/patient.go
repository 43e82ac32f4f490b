package model

import "time"

type Patient struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name             string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	DepartmentID     string    `json:"department_id" bson:"department_id" validate:"required"`
	IsNewPatient     bool      `json:"is_new_patient" bson:"is_new_patient"`
	AssignedDoctorID *string   `json:"assigned_doctor_id,omitempty" bson:"assigned_doctor_id,omitempty"`
	CurrentToken     *TokenRef `json:"current_token,omitempty" bson:"current_token,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
