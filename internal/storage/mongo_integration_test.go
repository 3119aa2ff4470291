package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/domain"
	"spendtrack/internal/logger"
)

// Integration tests for the Mongo backend. They require a running replica
// set (change streams do not work on standalone servers) and are skipped
// unless SPENDTRACK_TEST_MONGO_URI is set.

func newIntegrationStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("SPENDTRACK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SPENDTRACK_TEST_MONGO_URI not set, skipping Mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewMongoStore(ctx, uri, logger.NewWithWriter(os.Stderr))
	if err != nil {
		t.Fatalf("NewMongoStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestMongoStore_CreateDeleteRoundTrip(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()

	if err := store.Create(ctx, userID, domain.Candidate{Item: "groceries", Amount: 200, Category: "Groceries"}, "spent 200 on groceries"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	records, err := store.List(ctx, userID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("expected a server-assigned timestamp")
	}

	if err := store.Delete(ctx, userID, "no-such-id"); err != nil {
		t.Errorf("Delete of nonexistent id returned error: %v", err)
	}
	if err := store.Delete(ctx, userID, records[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	records, err = store.List(ctx, userID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty set after delete, got %d", len(records))
	}
}

func TestMongoStore_SubscribeSeesRemoteWrites(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()

	var mu sync.Mutex
	var latest []domain.Record
	notified := make(chan struct{}, 8)

	unsubscribe, err := store.Subscribe(ctx, userID, func(records []domain.Record) {
		mu.Lock()
		latest = records
		mu.Unlock()
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	<-notified // initial delivery

	if err := store.Create(ctx, userID, domain.Candidate{Item: "coffee", Amount: 3.5, Category: "Food"}, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		mu.Lock()
		n := len(latest)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-notified:
		case <-deadline:
			t.Fatal("subscription never observed the write")
		}
	}

	mu.Lock()
	id := latest[0].ID
	mu.Unlock()
	if err := store.Delete(ctx, userID, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
