package chat

import (
	"context"
	"fmt"
	"sync"

	"spendtrack/internal/domain"
	"spendtrack/internal/storage"
)

// Session binds one user to the live record view and the conversation
// transcript. The transcript is append-only and lives only as long as the
// session; it is never persisted. Record updates arrive through the store
// subscription and may land at any time, including mid-turn; they simply
// replace the visible set.
type Session struct {
	userID      string
	orch        *Orchestrator
	unsubscribe func()

	mu          sync.RWMutex
	records     []domain.Record
	turns       []domain.Turn
	watchers    map[int]func([]domain.Record)
	nextWatcher int
}

// NewSession subscribes to the user's records and returns the session.
func NewSession(ctx context.Context, userID string, store storage.Store, orch *Orchestrator) (*Session, error) {
	s := &Session{
		userID:   userID,
		orch:     orch,
		watchers: make(map[int]func([]domain.Record)),
	}

	unsubscribe, err := store.Subscribe(ctx, userID, s.onRecords)
	if err != nil {
		return nil, fmt.Errorf("NewSession: subscribe: %w", err)
	}
	s.unsubscribe = unsubscribe
	return s, nil
}

// Send runs one turn through the orchestrator and appends both sides of
// the exchange to the transcript. Returns ErrBusy without touching the
// transcript when a turn is already in flight.
func (s *Session) Send(ctx context.Context, in Input) (domain.Turn, error) {
	userTurn := domain.NewUserTurn(in.Text, in.ImageName)

	reply, err := s.orch.HandleTurn(ctx, s.userID, in, s.Records())
	if err != nil {
		return domain.Turn{}, err
	}

	assistant := domain.NewAssistantTurn(reply.Text, reply.Records)

	s.mu.Lock()
	s.turns = append(s.turns, userTurn, assistant)
	s.mu.Unlock()

	return assistant, nil
}

// Records returns the current visible record set.
func (s *Session) Records() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Turns returns the transcript so far.
func (s *Session) Turns() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// UserID returns the session's user id.
func (s *Session) UserID() string {
	return s.userID
}

// Watch registers a callback for record set changes and delivers the
// current set immediately. The returned function cancels the watch.
func (s *Session) Watch(fn func([]domain.Record)) func() {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	current := make([]domain.Record, len(s.records))
	copy(current, s.records)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close cancels the store subscription.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Session) onRecords(records []domain.Record) {
	s.mu.Lock()
	s.records = records
	fns := make([]func([]domain.Record), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(records)
	}
}
