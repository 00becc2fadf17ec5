package ports

import (
	"context"

	"cryptoSignalDash/internal/domain"
)

// PredictionRepository defines the interface for the durable prediction store.
//
// Records are kept in insertion order and addressed by their stable ID, never
// by position. Callers are expected to treat storage failures as an empty
// collection (log and continue), not as fatal errors.
type PredictionRepository interface {
	// Append adds a record. It never deduplicates.
	Append(ctx context.Context, pred *domain.Prediction) error
	// List returns all stored records in insertion order. The returned slice
	// is a snapshot; mutating it does not affect storage.
	List(ctx context.Context) ([]*domain.Prediction, error)
	// DeleteByIDs removes exactly the records with the given IDs in one
	// transaction, leaving the relative order of the others unchanged.
	// IDs that no longer exist are ignored, so the verification engine's
	// prune step never clobbers writes that landed while it was scoring.
	DeleteByIDs(ctx context.Context, ids []string) error
	// DeleteByID removes exactly the record with the given ID, leaving the
	// relative order of the others unchanged. Unknown IDs return ErrNotFound.
	DeleteByID(ctx context.Context, id string) error
	// Clear empties the collection.
	Clear(ctx context.Context) error
}
