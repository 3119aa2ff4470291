package domain

import (
	"sort"
	"time"
)

// Record represents one logged transaction owned by a user.
// CreatedAt is the single canonical timestamp representation; storage
// backends convert their native shapes at the adapter boundary.
type Record struct {
	ID           string    `json:"id" bson:"_id"`
	UserID       string    `json:"user_id" bson:"user_id"`
	Item         string    `json:"item" bson:"item"`
	Amount       float64   `json:"amount" bson:"amount"`
	Category     string    `json:"category" bson:"category"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at,omitempty"`
	OriginalText string    `json:"original_text,omitempty" bson:"original_text,omitempty"`
}

// Candidate is one transaction proposed by an extraction call. It only
// becomes a Record once the persistence adapter commits it.
type Candidate struct {
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// SortRecords orders records newest first. Records with a zero timestamp
// sort last, matching the behaviour of the cloud store before a
// server-assigned timestamp becomes visible.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// SnapshotEntry is the reduced record shape sent to remote model calls.
type SnapshotEntry struct {
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

const (
	// SummarySnapshotLimit caps the records included in a summarization call.
	SummarySnapshotLimit = 100

	// AdviceSnapshotLimit caps the records included in an advice call.
	AdviceSnapshotLimit = 30
)

// Snapshot reduces the first limit records to the fields remote calls need.
func Snapshot(records []Record, limit int) []SnapshotEntry {
	if limit > len(records) {
		limit = len(records)
	}
	entries := make([]SnapshotEntry, 0, limit)
	for _, r := range records[:limit] {
		entries = append(entries, SnapshotEntry{
			Item:     r.Item,
			Amount:   r.Amount,
			Category: r.Category,
		})
	}
	return entries
}
