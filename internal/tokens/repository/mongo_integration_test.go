//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/validator"
	"medqueue/pkg/client"
	"medqueue/pkg/config"
	"medqueue/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const integrationDay = model.DayKey("2026-10-19")

// newMongoConfig connects to MONGO_URI (default localhost) and hands out a
// throwaway database dropped when the test ends.
func newMongoConfig(t *testing.T) *config.Config {
	t.Helper()

	uri := os.Getenv(config.EnvMongoURI)
	if uri == "" {
		uri = config.DefaultMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	if err := mc.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not reachable at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("medqueue_it_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mc.Database(dbName).Drop(ctx)
		_ = mc.Disconnect(ctx)
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Client:            &client.Client{Mongo: mc},
	}
}

func insertDirectory(t *testing.T, cfg *config.Config) (deptID string, doctorIDs []string) {
	t.Helper()
	ctx := context.Background()
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)

	dept := primitive.NewObjectID()
	_, err := db.Collection(DepartmentsCollection).InsertOne(ctx, bson.M{"_id": dept, "name": "Cardiology"})
	require.NoError(t, err)

	loads := []int{3, 1, 1}
	for i, load := range loads {
		id := primitive.NewObjectID()
		_, err := db.Collection(DoctorsCollection).InsertOne(ctx, bson.M{
			"_id":             id,
			"name":            fmt.Sprintf("Dr. %d", i),
			"department_id":   dept.Hex(),
			"active_patients": load,
		})
		require.NoError(t, err)
		doctorIDs = append(doctorIDs, id.Hex())
	}
	return dept.Hex(), doctorIDs
}

func TestMongoLedger_CreateAndConflict(t *testing.T) {
	cfg := newMongoConfig(t)
	ledger := NewMongoTokenLedger(cfg)
	ctx := context.Background()
	require.NoError(t, ledger.EnsureIndexes(ctx))

	_, err := ledger.FindToday(ctx, integrationDay)
	assert.ErrorIs(t, err, tokenserrors.ErrNoLedger)

	entry, err := ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay, DepartmentID: "d", PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.SequenceNumber)
	assert.Equal(t, 1, entry.TicketNumber)
	assert.NotEmpty(t, entry.ID)

	_, err = ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay, DepartmentID: "d", PatientID: "p2"})
	assert.ErrorIs(t, err, tokenserrors.ErrAlreadyExists)

	found, err := ledger.FindToday(ctx, integrationDay)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, found.ID)
	require.NoError(t, validator.NewTokenValidator().ValidateEntry(found))
}

func TestMongoLedger_RetriesTokenCollision(t *testing.T) {
	cfg := newMongoConfig(t)
	ledger := NewMongoTokenLedger(cfg)
	ctx := context.Background()
	require.NoError(t, ledger.EnsureIndexes(ctx))

	tokens := []string{"TKN-20261019-aaaaaa", "TKN-20261019-aaaaaa", "TKN-20261020-bbbbbb"}
	ledger.tokens = func(model.DayKey) string {
		next := tokens[0]
		tokens = tokens[1:]
		return next
	}

	_, err := ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay, DepartmentID: "d", PatientID: "p1"})
	require.NoError(t, err)

	entry, err := ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay.Next(), DepartmentID: "d", PatientID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "TKN-20261020-bbbbbb", entry.Token)
}

func TestMongoLedger_ConcurrentIncrements(t *testing.T) {
	cfg := newMongoConfig(t)
	ledger := NewMongoTokenLedger(cfg)
	ctx := context.Background()
	require.NoError(t, ledger.EnsureIndexes(ctx))

	entry, err := ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay, DepartmentID: "d", PatientID: "p0"})
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	numbers := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			updated, err := ledger.IncrementToday(ctx, entry, IssueRequest{PatientID: fmt.Sprintf("p%d", i+1)})
			if assert.NoError(t, err) {
				numbers[i] = updated.TicketNumber
			}
		}(i)
	}
	wg.Wait()

	sort.Ints(numbers)
	for i, num := range numbers {
		assert.Equal(t, i+2, num)
	}

	again, err := ledger.IncrementToday(ctx, entry, IssueRequest{PatientID: "p3"})
	require.NoError(t, err)
	assert.Equal(t, n+1, again.SequenceNumber, "re-issuing to a holder must not increment")

	require.NoError(t, validator.NewTokenValidator().ValidateEntry(again))
}

func TestMongoLedger_LinkDoctor(t *testing.T) {
	cfg := newMongoConfig(t)
	ledger := NewMongoTokenLedger(cfg)
	ctx := context.Background()
	deptID, doctors := insertDirectory(t, cfg)

	entry, err := ledger.CreateToday(ctx, CreateRequest{DayKey: integrationDay, DepartmentID: deptID, DoctorID: &doctors[0], PatientID: "p1"})
	require.NoError(t, err)

	linked, err := ledger.LinkDoctor(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", linked.DepartmentName)
	assert.Equal(t, "Dr. 0", linked.DoctorName)
}

func TestMongoDirectories(t *testing.T) {
	cfg := newMongoConfig(t)
	ctx := context.Background()
	deptID, doctors := insertDirectory(t, cfg)

	least, err := NewMongoDoctorDirectory(cfg).FindOne(ctx, DoctorQuery{DepartmentID: deptID, SortByLoadAscending: true})
	require.NoError(t, err)
	expected := doctors[1]
	if doctors[2] < expected {
		expected = doctors[2]
	}
	assert.Equal(t, expected, least.ID)

	_, err = NewMongoDoctorDirectory(cfg).FindOne(ctx, DoctorQuery{DepartmentID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, tokenserrors.ErrDoctorNotFound)

	patientID := primitive.NewObjectID()
	_, err = cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PatientsCollection).
		InsertOne(ctx, bson.M{"_id": patientID, "name": "Asha", "department_id": deptID, "is_new_patient": true})
	require.NoError(t, err)

	patients := NewMongoPatientDirectory(cfg, validator.NewTokenValidator())
	patient, err := patients.FindByID(ctx, patientID.Hex())
	require.NoError(t, err)
	assert.True(t, patient.IsNewPatient)

	patient.CurrentToken = &model.TokenRef{LedgerID: "l1", DayKey: integrationDay, TicketNumber: 3}
	require.NoError(t, patients.Save(ctx, patient, SaveOptions{SkipValidation: true}))

	reloaded, err := patients.FindByID(ctx, patientID.Hex())
	require.NoError(t, err)
	require.NotNil(t, reloaded.CurrentToken)
	assert.Equal(t, 3, reloaded.CurrentToken.TicketNumber)

	_, err = patients.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, tokenserrors.ErrInvalidID)
}
