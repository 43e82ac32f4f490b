package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/pkg/config"
	"medqueue/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTokenLedger struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	tokens     TokenGenerator
	now        func() time.Time
}

func NewMongoTokenLedger(cfg *config.Config) *MongoTokenLedger {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &MongoTokenLedger{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(LedgerCollection),
		tokens:     NewToken,
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique indexes the ledger relies on for
// single-entry-per-day. Safe to call on every start.
func (r *MongoTokenLedger) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, LedgerIndexes())
	if err != nil {
		return fmt.Errorf("failed to create token ledger indexes: %w", err)
	}
	return nil
}

func LedgerIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "day_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(LedgerDayKeyIndex),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(LedgerTokenIndex),
		},
	}
}

func (r *MongoTokenLedger) FindToday(ctx context.Context, day model.DayKey) (*model.TokenLedgerEntry, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.TokenLedgerEntry
	err := r.collection.FindOne(ctx, bson.M{"day_key": day}).Decode(&entry)
	if err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", tokenserrors.ErrNoLedger, day), "find token ledger entry")
	}
	return &entry, nil
}

func (r *MongoTokenLedger) CreateToday(ctx context.Context, req CreateRequest) (*model.TokenLedgerEntry, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := r.now().UTC().Truncate(time.Millisecond)
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		entry := newEntry(req, r.tokens(req.DayKey), now)

		result, err := r.collection.InsertOne(ctx, entry)
		if err == nil {
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				entry.ID = oid.Hex()
			}
			entry.ForPatient(req.PatientID)
			return entry, nil
		}

		if isIndexConflict(err, LedgerTokenIndex) {
			continue
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", tokenserrors.ErrAlreadyExists, req.DayKey)
		}
		return nil, storageError("create token ledger entry", err)
	}

	return nil, storageError("create token ledger entry", errors.New("could not generate a unique token"))
}

func (r *MongoTokenLedger) IncrementToday(ctx context.Context, entry *model.TokenLedgerEntry, req IssueRequest) (*model.TokenLedgerEntry, error) {
	oid, err := objectID(entry.ID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := r.now().UTC().Truncate(time.Millisecond)
	filter := bson.M{
		"_id":               oid,
		"issued.patient_id": bson.M{"$ne": req.PatientID},
	}
	// Two stages so the pushed ticket sees the incremented sequence number.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "sequence_number", Value: bson.D{{Key: "$add", Value: bson.A{"$sequence_number", 1}}}},
			{Key: "updated_at", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "issued", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				"$issued",
				bson.A{bson.D{
					{Key: "patient_id", Value: bson.D{{Key: "$literal", Value: req.PatientID}}},
					{Key: "number", Value: "$sequence_number"},
					{Key: "doctor_id", Value: bson.D{{Key: "$literal", Value: req.DoctorID}}},
					{Key: "issued_at", Value: now},
				}},
			}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.TokenLedgerEntry
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		updated.ForPatient(req.PatientID)
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storageError("increment token ledger entry", err)
	}

	// Either the patient already holds a number or the entry is gone.
	var current model.TokenLedgerEntry
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&current); err != nil {
		return nil, notFoundOr(err, fmt.Errorf("%w: %s", tokenserrors.ErrNoLedger, entry.DayKey), "find token ledger entry")
	}
	current.ForPatient(req.PatientID)
	return &current, nil
}

type linkedNames struct {
	Department []model.Department `bson:"department"`
	Doctor     []model.Doctor     `bson:"doctor"`
}

func (r *MongoTokenLedger) LinkDoctor(ctx context.Context, entry *model.TokenLedgerEntry) (*model.TokenLedgerEntry, error) {
	oid, err := objectID(entry.ID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}},
		lookupByID(DepartmentsCollection, "$department_id", "department"),
	}
	if doctorID := entry.DisplayDoctorID(); doctorID != nil {
		pipeline = append(pipeline, lookupByID(DoctorsCollection, bson.D{{Key: "$literal", Value: *doctorID}}, "doctor"))
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.D{
		{Key: "department", Value: 1},
		{Key: "doctor", Value: 1},
	}}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storageError("link token ledger entry", err)
	}
	defer cursor.Close(ctx)

	var results []linkedNames
	if err := cursor.All(ctx, &results); err != nil {
		return nil, storageError("decode linked token ledger entry", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", tokenserrors.ErrNoLedger, entry.DayKey)
	}

	linked := entry.Clone()
	if len(results[0].Department) > 0 {
		linked.DepartmentName = results[0].Department[0].Name
	}
	if len(results[0].Doctor) > 0 {
		linked.DoctorName = results[0].Doctor[0].Name
	}
	return linked, nil
}

func lookupByID(from string, idExpr any, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "let", Value: bson.D{{Key: "refId", Value: toObjectID(idExpr)}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$_id", "$$refId"}},
			}}}}},
			bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}}}},
		}},
		{Key: "as", Value: as},
	}}}
}
