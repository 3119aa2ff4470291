// Package advisor derives the single dashboard observation from spending
// history. The tip is computed at most once per session; nothing
// invalidates it short of a restart.
package advisor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"spendtrack/internal/domain"
)

// fallbackTip is shown when the advice call fails.
const fallbackTip = "Keep logging your spending and I'll have an observation for you soon."

// AdviceService is the remote call that produces the observation.
// *ai.Client satisfies this.
type AdviceService interface {
	Advise(ctx context.Context, snapshot []domain.SnapshotEntry) (string, error)
}

// Advisor caches one tip per session.
type Advisor struct {
	service AdviceService
	log     zerolog.Logger

	mu     sync.Mutex
	tip    string
	cached bool
}

// New creates an Advisor around the given service.
func New(service AdviceService, log zerolog.Logger) *Advisor {
	return &Advisor{service: service, log: log}
}

// Tip returns the session's observation, computing it on the first call
// with a non-empty history. An empty history yields an empty tip and does
// not populate the cache, so the first real history still gets a tip.
// A failed remote call caches the static fallback; it is not retried.
func (a *Advisor) Tip(ctx context.Context, history []domain.Record) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached {
		return a.tip
	}
	if len(history) == 0 {
		return ""
	}

	tip, err := a.service.Advise(ctx, domain.Snapshot(history, domain.AdviceSnapshotLimit))
	if err != nil {
		a.log.Error().Err(err).Msg("Advice call failed")
		tip = fallbackTip
	}

	a.tip = tip
	a.cached = true
	return a.tip
}

// Reset clears the cached tip. Used when a session is torn down and
// rebuilt, mirroring a full reload.
func (a *Advisor) Reset() {
	a.mu.Lock()
	a.tip = ""
	a.cached = false
	a.mu.Unlock()
}
