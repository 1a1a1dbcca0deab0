package ui

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/export"
	"invoice-analytics/internal/service/chat"
)

const maxAskBody = 64 << 10

// askRequest is the Datastar signal payload posted by the chat form.
type askRequest struct {
	Question string `json:"question"`
}

// ChatNew starts a fresh chat.
func (h *Handler) ChatNew(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/chat/"+domain.NewID(), http.StatusSeeOther)
}

// ChatPage renders a chat with its latest session.
func (h *Handler) ChatPage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if !ValidChatID(chatID) {
		h.renderServiceError(w, r, domain.ErrNotFound("chat %q not found", chatID))
		return
	}

	session := domain.Session{Status: domain.SessionIdle}
	if ctrl, ok := h.Chats.Get(chatID); ok {
		session = ctrl.Snapshot()
	}
	renderHTML(w, http.StatusOK, chatPage(chatID, csrfToken(r), session))
}

// ChatAsk submits a question and streams session snapshots as patch
// events until the session finishes or the browser goes away. A question
// sent while another is streaming only produces a notice.
func (h *Handler) ChatAsk(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if !ValidChatID(chatID) {
		http.NotFound(w, r)
		return
	}

	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBody)
	if err := datastar.ReadSignals(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	stream := newPatchStream(w, r)

	ctrl := h.Chats.GetOrCreate(chatID)
	latest := newLatestSession()
	unsubscribe := ctrl.Subscribe(latest.put)
	defer unsubscribe()

	if err := ctrl.Start(r.Context(), req.Question); err != nil {
		msg, tone := askRejection(err)
		_ = stream.PatchElements(noticeView(msg, tone))
		return
	}
	_ = stream.PatchElements(noticeView("", ""))
	_ = stream.PatchSignals(map[string]any{"question": ""})

	for {
		select {
		case <-r.Context().Done():
			return
		case <-latest.ready:
			s := latest.take()
			if err := stream.PatchElements(sessionView(chatID, s)); err != nil {
				h.logger.DebugContext(r.Context(), "chat stream closed", "chat_id", chatID, "error", err)
				return
			}
			if s.Status.Terminal() {
				return
			}
		}
	}
}

func askRejection(err error) (message, tone string) {
	var validation *domain.ValidationError
	switch {
	case errors.Is(err, chat.ErrSessionInFlight):
		return "Still answering the previous question. Wait for it to finish.", "attention"
	case errors.As(err, &validation):
		return "Please enter a question.", "attention"
	default:
		return err.Error(), "danger"
	}
}

// ChatExport downloads the chat's last result set.
func (h *Handler) ChatExport(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	ctrl, ok := h.Chats.Get(chatID)
	if !ok {
		h.renderServiceError(w, r, domain.ErrNotFound("chat %q not found", chatID))
		return
	}

	rawFormat := r.URL.Query().Get("format")
	if rawFormat == "" {
		rawFormat = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	s := ctrl.Snapshot()
	if len(s.ResultColumns) == 0 {
		h.renderServiceError(w, r, domain.ErrNotFound("chat has no result to export"))
		return
	}

	dir, err := os.MkdirTemp("", "chat-export-*")
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "result."+string(format))
	if _, err := h.Exporter.WriteFile(r.Context(), s.ResultColumns, s.ResultRows, format, path); err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	f, err := os.Open(path) //nolint:gosec // file created above
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	name := fmt.Sprintf("chat-%s.%s", chatID, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Time{}, f)
}

// latestSession keeps only the newest snapshot so a slow browser never
// blocks the controller.
type latestSession struct {
	mu      sync.Mutex
	session domain.Session
	ready   chan struct{}
}

func newLatestSession() *latestSession {
	return &latestSession{ready: make(chan struct{}, 1)}
}

func (l *latestSession) put(s domain.Session) {
	l.mu.Lock()
	l.session = s
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestSession) take() domain.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}
