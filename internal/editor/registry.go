package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youruser/certgen/internal/export"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry keeps sessions in memory; nothing survives a restart.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	renderer export.RowRenderer
	ttl      time.Duration
	log      *slog.Logger
}

func NewRegistry(r export.RowRenderer, ttl time.Duration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		sessions: map[string]*Session{},
		renderer: r,
		ttl:      ttl,
		log:      log,
	}
}

func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.renderer, r.log)
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.log.Info("session created", "session", s.ID, "active", n)
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
// Sessions with an export running are never dropped.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.IdleSince()) > r.ttl && !s.Exporting() {
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.log.Info("expired idle sessions", "count", n, "active", len(r.sessions))
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if r.ttl <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}
