package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spendtrack/internal/domain"
)

// recordsFileName is the fixed per-app key the local store persists under.
const recordsFileName = "records.json"

// FileStore is the local fallback backend. All records live in one JSON
// file that is rewritten on every mutation; subscribers in the same process
// are notified after each write. Cross-process propagation is not provided.
//
// On the subscription path, read and parse failures degrade to an empty
// record set; List propagates them instead.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]fileSubscriber
}

type fileSubscriber struct {
	userID string
	fn     func([]domain.Record)
}

// NewFileStore creates a FileStore rooted at dataDir, creating the
// directory if needed.
func NewFileStore(dataDir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileStore: create data dir %q: %w", dataDir, err)
	}
	return &FileStore{
		path: filepath.Join(dataDir, recordsFileName),
		log:  log,
		subs: make(map[int]fileSubscriber),
	}, nil
}

// Subscribe loads and delivers the user's current records synchronously,
// then registers the callback for change notifications.
func (s *FileStore) Subscribe(ctx context.Context, userID string, fn func([]domain.Record)) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fileSubscriber{userID: userID, fn: fn}
	current := s.viewLocked(userID)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// List returns the user's records newest first. A read or parse failure is
// returned rather than degraded, so callers acting on the result can tell
// it apart from an empty ledger.
func (s *FileStore) List(ctx context.Context, userID string) ([]domain.Record, error) {
	s.mu.Lock()
	all, err := s.readLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("FileStore.List: %w", err)
	}

	view := make([]domain.Record, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			view = append(view, r)
		}
	}
	domain.SortRecords(view)
	return view, nil
}

// Create appends one record with a generated id and a client-side timestamp,
// rewrites the list and notifies all subscribers.
func (s *FileStore) Create(ctx context.Context, userID string, c domain.Candidate, sourceText string) error {
	s.mu.Lock()
	records := s.loadLocked()
	records = append(records, domain.Record{
		ID:           uuid.NewString(),
		UserID:       userID,
		Item:         c.Item,
		Amount:       c.Amount,
		Category:     c.Category,
		CreatedAt:    time.Now(),
		OriginalText: sourceText,
	})
	if err := s.saveLocked(records); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("FileStore.Create: %w", err)
	}
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Delete filters the record out and re-persists the list. An absent id
// changes nothing and notifies nobody.
func (s *FileStore) Delete(ctx context.Context, userID, recordID string) error {
	s.mu.Lock()
	records := s.loadLocked()
	kept := records[:0]
	for _, r := range records {
		if r.ID == recordID && r.UserID == userID {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == len(records) {
		s.mu.Unlock()
		return nil
	}
	if err := s.saveLocked(kept); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("FileStore.Delete: %w", err)
	}
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Close implements Store. The file store holds no open resources.
func (s *FileStore) Close(ctx context.Context) error {
	return nil
}

// broadcast re-delivers each subscriber's current view. Callbacks run
// outside the lock so they may call back into the store.
func (s *FileStore) broadcast() {
	s.mu.Lock()
	type delivery struct {
		fn      func([]domain.Record)
		records []domain.Record
	}
	deliveries := make([]delivery, 0, len(s.subs))
	for _, sub := range s.subs {
		deliveries = append(deliveries, delivery{fn: sub.fn, records: s.viewLocked(sub.userID)})
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.records)
	}
}

// viewLocked returns the user's records, newest first.
func (s *FileStore) viewLocked(userID string) []domain.Record {
	all := s.loadLocked()
	view := make([]domain.Record, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			view = append(view, r)
		}
	}
	domain.SortRecords(view)
	return view
}

func (s *FileStore) loadLocked() []domain.Record {
	records, err := s.readLocked()
	if err != nil {
		s.log.Debug().Err(err).Str("path", s.path).Msg("Failed to load record file, treating as empty")
		return nil
	}
	return records
}

func (s *FileStore) readLocked() ([]domain.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %q: %w", s.path, err)
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %q: %w", s.path, err)
	}
	return records, nil
}

func (s *FileStore) saveLocked(records []domain.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", s.path, err)
	}
	return nil
}

// Ensure FileStore implements the Store interface.
var _ Store = (*FileStore)(nil)
