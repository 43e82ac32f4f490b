package repository

import (
	"context"
	"fmt"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/config"
	"medqueue/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoPatientDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
	validator  *validator.TokenValidator
}

func NewMongoPatientDirectory(cfg *config.Config, v *validator.TokenValidator) PatientDirectory {
	return &mongoPatientDirectory{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PatientsCollection),
		validator:  v,
	}
}

func (r *mongoPatientDirectory) FindByID(ctx context.Context, id string) (*model.Patient, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var patient model.Patient
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&patient); err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", tokenserrors.ErrPatientNotFound, id), "find patient")
	}
	return &patient, nil
}

// Save writes the fields this service owns on the patient profile. With
// SkipValidation neither the profile validator nor the collection's schema
// validator runs.
func (r *mongoPatientDirectory) Save(ctx context.Context, patient *model.Patient, opts SaveOptions) error {
	oid, err := objectID(patient.ID)
	if err != nil {
		return err
	}
	if !opts.SkipValidation {
		if err := r.validator.ValidatePatient(patient); err != nil {
			return fmt.Errorf("%w: %w", tokenserrors.ErrProfileLink, err)
		}
	}

	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"is_new_patient":     patient.IsNewPatient,
		"assigned_doctor_id": patient.AssignedDoctorID,
		"current_token":      patient.CurrentToken,
	}
	updateOpts := options.Update().SetBypassDocumentValidation(opts.SkipValidation)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, updateOpts)
	if err != nil {
		return fmt.Errorf("%w: %w", tokenserrors.ErrProfileLink, storageError("save patient", err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", tokenserrors.ErrPatientNotFound, patient.ID)
	}
	return nil
}

type mongoDepartmentDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDepartmentDirectory(cfg *config.Config) DepartmentDirectory {
	return &mongoDepartmentDirectory{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(DepartmentsCollection),
	}
}

func (r *mongoDepartmentDirectory) FindByID(ctx context.Context, id string) (*model.Department, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var department model.Department
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&department); err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", tokenserrors.ErrDepartmentNotFound, id), "find department")
	}
	return &department, nil
}

type mongoDoctorDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoDoctorDirectory(cfg *config.Config) DoctorDirectory {
	return &mongoDoctorDirectory{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(DoctorsCollection),
	}
}

func (r *mongoDoctorDirectory) FindOne(ctx context.Context, query DoctorQuery) (*model.Doctor, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne()
	if query.SortByLoadAscending {
		opts.SetSort(bson.D{
			{Key: "active_patients", Value: 1},
			{Key: "_id", Value: 1},
		})
	}

	var doctor model.Doctor
	err := r.collection.FindOne(ctx, bson.M{"department_id": query.DepartmentID}, opts).Decode(&doctor)
	if err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: department %s", tokenserrors.ErrDoctorNotFound, query.DepartmentID), "find doctor")
	}
	return &doctor, nil
}

func (r *mongoDoctorDirectory) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doctor model.Doctor
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doctor); err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", tokenserrors.ErrDoctorNotFound, id), "find doctor")
	}
	return &doctor, nil
}
