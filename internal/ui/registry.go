package ui

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/service/chat"
)

// ControllerFactory builds the controller for a new chat.
type ControllerFactory func(chatID string) *chat.Controller

type chatEntry struct {
	controller *chat.Controller
	lastUsed   time.Time
}

// ChatRegistry keeps one chat controller per browser chat and evicts chats
// that have been idle for longer than the TTL.
type ChatRegistry struct {
	mu      sync.Mutex
	chats   map[string]*chatEntry
	factory ControllerFactory
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewChatRegistry creates a registry. A ttl of zero disables eviction.
func NewChatRegistry(factory ControllerFactory, ttl time.Duration, logger *slog.Logger) *ChatRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatRegistry{
		chats:   make(map[string]*chatEntry),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With("component", "chat-registry"),
	}
}

// ValidChatID reports whether id is a well-formed chat identifier.
func ValidChatID(id string) bool {
	return domain.ValidID(id)
}

// Get returns the controller for chatID without creating one.
func (r *ChatRegistry) Get(chatID string) (*chat.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.chats[chatID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.controller, true
}

// GetOrCreate returns the controller for chatID, creating it on first use.
func (r *ChatRegistry) GetOrCreate(chatID string) *chat.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.chats[chatID]
	if !ok {
		e = &chatEntry{controller: r.factory(chatID)}
		r.chats[chatID] = e
	}
	e.lastUsed = r.now()
	return e.controller
}

// Len returns the number of live chats.
func (r *ChatRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

// Sweep evicts chats idle for longer than the TTL. Chats with a question in
// flight are kept. It returns the number of evicted chats.
func (r *ChatRegistry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for id, e := range r.chats {
		if e.lastUsed.Before(cutoff) && !e.controller.Busy() {
			delete(r.chats, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug("evicted idle chats", "count", evicted, "remaining", len(r.chats))
	}
	return evicted
}

// Run sweeps periodically until ctx is cancelled.
func (r *ChatRegistry) Run(ctx context.Context) {
	if r.ttl <= 0 {
		return
	}
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
