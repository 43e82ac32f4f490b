package model

type Doctor struct {
	ID           string `json:"id,omitempty" bson:"_id,omitempty"`
	Name         string `json:"name" bson:"name"`
	DepartmentID string `json:"department_id" bson:"department_id"`
	// ActivePatients is maintained by whatever records visits; read-only here.
	ActivePatients int `json:"active_patients" bson:"active_patients"`
}

type Department struct {
	ID   string `json:"id,omitempty" bson:"_id,omitempty"`
	Name string `json:"name" bson:"name"`
}
