package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tokenserrors "medqueue/internal/tokens/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// withTimeout bounds ctx by timeout, keeping an earlier caller deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", tokenserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", tokenserrors.ErrStorageUnavailable, op, err)
}

func isIndexConflict(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	return strings.Contains(err.Error(), index)
}

func notFoundOr(err error, notFound error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return storageError(op, err)
}

// toObjectID converts a string expression to an ObjectID inside an
// aggregation, yielding null for anything that is not a valid hex id.
func toObjectID(expr any) bson.D {
	return bson.D{{Key: "$convert", Value: bson.D{
		{Key: "input", Value: expr},
		{Key: "to", Value: "objectId"},
		{Key: "onError", Value: nil},
		{Key: "onNull", Value: nil},
	}}}
}
