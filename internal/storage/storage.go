// Package storage provides the persistence adapter for transaction records.
// Two backends implement the same contract: a MongoDB document store with
// live change notification, and a local file store for installs without a
// configured database. The backend is chosen once at construction time and
// injected into everything that needs it.
package storage

import (
	"context"

	"spendtrack/internal/domain"
)

// Store is the uniform CRUD-plus-subscribe contract over both backends.
//
// Subscribe delivers the user's full, freshly sorted record set: once
// synchronously on registration, then again after every observed mutation.
// The returned function cancels the subscription.
//
// List returns the same sorted set as a one-shot read. Unlike Subscribe it
// propagates read failures, so a caller that acts on the result (the Notion
// export) can tell a failed read from an empty ledger.
//
// Create commits one proposed candidate as a new record. The store assigns
// the id and the timestamp.
//
// Delete removes a record by id. A missing id is a no-op, not an error.
type Store interface {
	Subscribe(ctx context.Context, userID string, fn func([]domain.Record)) (func(), error)
	List(ctx context.Context, userID string) ([]domain.Record, error)
	Create(ctx context.Context, userID string, c domain.Candidate, sourceText string) error
	Delete(ctx context.Context, userID, recordID string) error
	Close(ctx context.Context) error
}
