package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spendtrack/internal/advisor"
	"spendtrack/internal/chat"
	"spendtrack/internal/domain"
	"spendtrack/internal/storage"
)

type stubExtractor struct {
	candidates []domain.Candidate
	answer     string
}

func (s *stubExtractor) ExtractText(ctx context.Context, text, memoryContext string) ([]domain.Candidate, error) {
	return s.candidates, nil
}

func (s *stubExtractor) ExtractImage(ctx context.Context, data []byte, mimeType string) ([]domain.Candidate, error) {
	return s.candidates, nil
}

func (s *stubExtractor) Summarize(ctx context.Context, question string, snapshot []domain.SnapshotEntry) (string, error) {
	return s.answer, nil
}

type stubAdviceService struct {
	tip string
}

func (s *stubAdviceService) Advise(ctx context.Context, snapshot []domain.SnapshotEntry) (string, error) {
	return s.tip, nil
}

func newTestHandler(t *testing.T, extractor chat.Extractor, tip string) (*ChatHandler, storage.Store) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })

	orch := chat.New(store, extractor, nil, zerolog.Nop())
	session, err := chat.NewSession(context.Background(), "test-user", store, orch)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(session.Close)

	adv := advisor.New(&stubAdviceService{tip: tip}, zerolog.Nop())
	return NewChatHandler(session, store, adv, zerolog.Nop()), store
}

func TestSendMessage_CommitsAndReplies(t *testing.T) {
	extractor := &stubExtractor{
		candidates: []domain.Candidate{{Item: "Coffee", Amount: 200, Category: "Food"}},
	}
	h, _ := newTestHandler(t, extractor, "")

	body := strings.NewReader(`{"text": "Coffee 200"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var turn domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turn); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !strings.Contains(turn.Text, "200") {
		t.Errorf("reply = %q, want total mentioned", turn.Text)
	}

	lw := httptest.NewRecorder()
	h.ListRecords(lw, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	var listed struct {
		Count   int             `json:"count"`
		Records []domain.Record `json:"records"`
	}
	if err := json.NewDecoder(lw.Body).Decode(&listed); err != nil {
		t.Fatalf("decoding list response: %v", err)
	}
	if listed.Count != 1 {
		t.Fatalf("count = %d, want 1", listed.Count)
	}
	if listed.Records[0].Item != "Coffee" {
		t.Errorf("item = %q, want Coffee", listed.Records[0].Item)
	}
}

func TestSendMessage_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSendMessage_InvalidImageEncoding(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{}, "")

	body := strings.NewReader(`{"image_base64": "!!not-base64!!", "image_mime": "image/png"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteRecord_UnknownIDSucceeds(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{}, "")

	req := httptest.NewRequest(http.MethodDelete, "/api/records/no-such-id", nil)
	w := httptest.NewRecorder()

	h.DeleteRecord(w, req, "no-such-id")

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestSummary_GroupsByCategory(t *testing.T) {
	extractor := &stubExtractor{
		candidates: []domain.Candidate{
			{Item: "Coffee", Amount: 90, Category: "Food"},
			{Item: "Bus", Amount: 10, Category: "Transport"},
		},
	}
	h, _ := newTestHandler(t, extractor, "")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text": "coffee and bus"}`))
	h.SendMessage(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	h.Summary(w, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Categories []domain.CategorySummary `json:"categories"`
		Count      int                      `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if len(resp.Categories) != 2 || resp.Categories[0].Category != "Food" {
		t.Errorf("categories = %+v, want Food first", resp.Categories)
	}
}

func TestInsight_ReturnsTip(t *testing.T) {
	extractor := &stubExtractor{
		candidates: []domain.Candidate{{Item: "Coffee", Amount: 5, Category: "Food"}},
	}
	h, _ := newTestHandler(t, extractor, "Try brewing at home.")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text": "coffee 5"}`))
	h.SendMessage(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	h.Insight(w, httptest.NewRequest(http.MethodGet, "/api/insight", nil))

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["tip"] != "Try brewing at home." {
		t.Errorf("tip = %q, want stubbed tip", resp["tip"])
	}
}

func TestOfferLatest_CoalescesWhenFull(t *testing.T) {
	updates := make(chan []domain.Record, 1)

	offerLatest(updates, []domain.Record{{Item: "stale"}})
	offerLatest(updates, []domain.Record{{Item: "fresh"}})

	got := <-updates
	if len(got) != 1 || got[0].Item != "fresh" {
		t.Errorf("expected the newest update to survive, got %+v", got)
	}
	select {
	case extra := <-updates:
		t.Errorf("expected a single pending update, got extra %+v", extra)
	default:
	}
}

func TestStreamRecords_SendsInitialSet(t *testing.T) {
	h, _ := newTestHandler(t, &stubExtractor{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/records/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	h.StreamRecords(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "data: ") {
		t.Errorf("body = %q, want SSE data event", w.Body.String())
	}
}
