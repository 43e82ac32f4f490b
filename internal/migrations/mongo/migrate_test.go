package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"medqueue/internal/tokens/repository"
)

func TestCollections_LedgerUniqueIndexes(t *testing.T) {
	def, ok := collections()[repository.LedgerCollection]
	if !ok {
		t.Fatalf("missing %s collection", repository.LedgerCollection)
	}

	unique := map[string]bool{}
	for _, idx := range def.Indexes {
		if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
			continue
		}
		unique[*idx.Options.Name] = true
	}
	for _, name := range []string{repository.LedgerDayKeyIndex, repository.LedgerTokenIndex} {
		if !unique[name] {
			t.Errorf("expected unique index %s", name)
		}
	}
}

func TestCollections_AllHaveValidators(t *testing.T) {
	for name, def := range collections() {
		schema, ok := def.Validator["$jsonSchema"].(bson.M)
		if !ok {
			t.Errorf("%s: missing $jsonSchema validator", name)
			continue
		}
		if schema["bsonType"] != "object" {
			t.Errorf("%s: expected object schema", name)
		}
	}
}
