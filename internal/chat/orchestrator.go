// Package chat contains the per-turn orchestration: deciding which remote
// AI calls a user message needs, merging their candidate transactions, and
// committing the result through the persistence adapter.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"spendtrack/internal/domain"
	"spendtrack/internal/storage"
)

// Phase is the orchestrator's current position in a turn.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseVision  Phase = "vision"
	PhaseParsing Phase = "parsing"
	PhaseLedger  Phase = "ledger"
	PhaseSummary Phase = "summary"
)

// ErrBusy is returned when a turn arrives while another is in flight.
// Only one extraction pass runs at a time.
var ErrBusy = errors.New("a message is already being processed")

// User-visible response texts. Failures always collapse to one of these;
// no structured error reaches the caller.
const (
	msgGenericError = "Sorry, something went wrong while saving your transactions. Please try again."
	msgSummaryError = "Sorry, I couldn't analyze your spending right now. Please try again later."
	msgNoReceiptTx  = "I couldn't identify any clear transactions in that receipt."
	msgNoTextTx     = "I couldn't identify any clear transactions in that message."
	msgNothingSent  = "Tell me what you spent, ask a question about your spending, or send a receipt photo."
)

// Extractor is the set of remote AI calls the orchestrator sequences.
// *ai.Client satisfies this.
type Extractor interface {
	ExtractText(ctx context.Context, text, memoryContext string) ([]domain.Candidate, error)
	ExtractImage(ctx context.Context, data []byte, mimeType string) ([]domain.Candidate, error)
	Summarize(ctx context.Context, question string, snapshot []domain.SnapshotEntry) (string, error)
}

// Archiver stores raw receipt bytes out of band. Archival is best-effort;
// failures never affect the turn.
type Archiver interface {
	ArchiveReceipt(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Input is one user send action.
type Input struct {
	Text      string
	Image     []byte
	ImageMIME string
	ImageName string
}

// Reply is the assistant's response for one turn.
type Reply struct {
	Text    string
	Records []domain.Candidate
}

// CommitResult is the outcome of committing one candidate.
type CommitResult struct {
	Candidate domain.Candidate
	Err       error
}

// BatchResult captures per-record outcomes of a multi-record commit so
// partial failures stay observable even though the user sees only a
// single generic error.
type BatchResult struct {
	Results []CommitResult
}

// Failed returns how many commits in the batch errored.
func (b BatchResult) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Err returns the first commit error, annotated with the failure count,
// or nil when every commit succeeded.
func (b BatchResult) Err() error {
	for _, r := range b.Results {
		if r.Err != nil {
			return fmt.Errorf("%d of %d commits failed: %w", b.Failed(), len(b.Results), r.Err)
		}
	}
	return nil
}

// Orchestrator runs the extraction state machine for one turn at a time:
// idle, vision, parsing, ledger, back to idle, with an independent summary
// path for questions.
type Orchestrator struct {
	store    storage.Store
	ai       Extractor
	archiver Archiver // nil disables receipt archival
	log      zerolog.Logger

	mu    sync.Mutex
	busy  bool
	phase Phase
}

// New creates an Orchestrator. archiver may be nil.
func New(store storage.Store, extractor Extractor, archiver Archiver, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		ai:       extractor,
		archiver: archiver,
		log:      log,
		phase:    PhaseIdle,
	}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// HandleTurn processes one send action against the user's history and
// returns the assistant reply. It returns ErrBusy while another turn is in
// flight. The idle phase is restored on every outcome.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID string, in Input, history []domain.Record) (Reply, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return Reply{}, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.phase = PhaseIdle
		o.mu.Unlock()
	}()

	text := strings.TrimSpace(in.Text)
	hasImage := len(in.Image) > 0
	question := text != "" && IsQuestion(text)

	var candidates []domain.Candidate

	if hasImage {
		o.setPhase(PhaseVision)
		got, err := o.ai.ExtractImage(ctx, in.Image, in.ImageMIME)
		if err != nil {
			// Degrade to zero candidates, no retry.
			o.log.Error().Err(err).Str("user_id", userID).Msg("Vision extraction failed")
			got = nil
		}
		candidates = append(candidates, got...)
		o.archiveReceipt(ctx, userID, in)
	}

	// A question gates only the text path; vision output above still counts.
	if text != "" && !question {
		o.setPhase(PhaseParsing)
		got, err := o.ai.ExtractText(ctx, text, BuildMemoryContext(history))
		if err != nil {
			o.log.Error().Err(err).Str("user_id", userID).Msg("Text extraction failed")
			got = nil
		}
		candidates = append(candidates, got...)
	}

	if len(candidates) > 0 {
		o.setPhase(PhaseLedger)
		batch := o.commitAll(ctx, userID, candidates, text)
		if err := batch.Err(); err != nil {
			o.log.Error().Err(err).Str("user_id", userID).Int("candidates", len(candidates)).Msg("Ledger commit failed")
			return Reply{Text: msgGenericError}, nil
		}
	}

	if question {
		o.setPhase(PhaseSummary)
		answer, err := o.ai.Summarize(ctx, text, domain.Snapshot(history, domain.SummarySnapshotLimit))
		if err != nil {
			o.log.Error().Err(err).Str("user_id", userID).Msg("Summarization failed")
			answer = msgSummaryError
		}
		return Reply{Text: answer, Records: candidates}, nil
	}

	if len(candidates) > 0 {
		return Reply{
			Text:    confirmationMessage(candidates),
			Records: candidates,
		}, nil
	}

	switch {
	case hasImage && text == "":
		return Reply{Text: msgNoReceiptTx}, nil
	case text != "":
		return Reply{Text: msgNoTextTx}, nil
	default:
		return Reply{Text: msgNothingSent}, nil
	}
}

// commitAll issues every candidate commit concurrently and joins them,
// collecting per-record outcomes.
func (o *Orchestrator) commitAll(ctx context.Context, userID string, candidates []domain.Candidate, sourceText string) BatchResult {
	results := make([]CommitResult, len(candidates))

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c domain.Candidate) {
			defer wg.Done()
			results[i] = CommitResult{
				Candidate: c,
				Err:       o.store.Create(ctx, userID, c, sourceText),
			}
		}(i, c)
	}
	wg.Wait()

	return BatchResult{Results: results}
}

func (o *Orchestrator) archiveReceipt(ctx context.Context, userID string, in Input) {
	if o.archiver == nil {
		return
	}
	uri, err := o.archiver.ArchiveReceipt(ctx, in.Image, in.ImageMIME)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", userID).Msg("Receipt archival failed")
		return
	}
	o.log.Info().Str("user_id", userID).Str("uri", uri).Msg("Receipt archived")
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func confirmationMessage(candidates []domain.Candidate) string {
	total := domain.CandidateTotal(candidates)
	if len(candidates) == 1 {
		return fmt.Sprintf("Added 1 transaction totaling %s.", total)
	}
	return fmt.Sprintf("Added %d transactions totaling %s.", len(candidates), total)
}
