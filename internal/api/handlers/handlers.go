package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"spendtrack/internal/advisor"
	"spendtrack/internal/api/middleware"
	"spendtrack/internal/chat"
	"spendtrack/internal/domain"
	"spendtrack/internal/storage"
)

// ChatHandler exposes one user's chat session over HTTP.
type ChatHandler struct {
	session *chat.Session
	store   storage.Store
	advisor *advisor.Advisor
	log     zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(session *chat.Session, store storage.Store, adv *advisor.Advisor, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		session: session,
		store:   store,
		advisor: adv,
		log:     log,
	}
}

// SendMessage handles POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		ImageBase64 string `json:"image_base64"`
		ImageMIME   string `json:"image_mime"`
		ImageName   string `json:"image_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := chat.Input{
		Text:      req.Text,
		ImageMIME: req.ImageMIME,
		ImageName: req.ImageName,
	}

	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid image encoding")
			return
		}
		in.Image = data
	}

	turn, err := h.session.Send(r.Context(), in)
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			middleware.WriteError(w, http.StatusConflict, "A message is already being processed")
			return
		}
		h.log.Error().Err(err).Msg("Failed to process message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, turn)
}

// ListRecords handles GET /api/records
func (h *ChatHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records := h.session.Records()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// DeleteRecord handles DELETE /api/records/:id
// Deleting an unknown id is a no-op and still succeeds.
func (h *ChatHandler) DeleteRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	if err := h.store.Delete(r.Context(), h.session.UserID(), recordID); err != nil {
		h.log.Error().Err(err).Str("record_id", recordID).Msg("Failed to delete record")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/summary
func (h *ChatHandler) Summary(w http.ResponseWriter, r *http.Request) {
	records := h.session.Records()
	summary := domain.SummarizeByCategory(records)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": summary,
		"count":      len(records),
	})
}

// Insight handles GET /api/insight
func (h *ChatHandler) Insight(w http.ResponseWriter, r *http.Request) {
	tip := h.advisor.Tip(r.Context(), h.session.Records())
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"tip": tip})
}

// StreamRecords handles GET /api/records/stream as server-sent events.
// The current record set is sent immediately, then again on every change,
// until the client disconnects.
func (h *ChatHandler) StreamRecords(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan []domain.Record, 8)
	cancel := h.session.Watch(func(records []domain.Record) {
		offerLatest(updates, records)
	})
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case records := <-updates:
			payload, err := json.Marshal(map[string]interface{}{
				"records": records,
				"count":   len(records),
			})
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to encode stream payload")
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// offerLatest queues an update without blocking the subscription callback.
// When the channel is full the oldest pending update is discarded first, so
// a slow consumer always drains to the newest record set.
func offerLatest(updates chan []domain.Record, records []domain.Record) {
	for {
		select {
		case updates <- records:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}
