package studio

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/history"
	"github.com/Conceptual-Machines/prompt-architect/internal/kvstore"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
	"github.com/Conceptual-Machines/prompt-architect/internal/metrics"
	"github.com/Conceptual-Machines/prompt-architect/internal/selection"
)

// DefaultIdleTimeout is how long an untouched session stays in memory.
// Its history survives eviction in the key-value store.
const DefaultIdleTimeout = 2 * time.Hour

// Config wires the collaborators shared by every session
type Config struct {
	Catalog     *catalog.Catalog
	Generator   Generator
	Store       kvstore.KeyValueStore
	Recorder    *metrics.Recorder
	MaxUpload   int64
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Registry maps session ids to sessions, creating them on first use
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Store == nil {
		cfg.Store = kvstore.NewMemory()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for id, loading its history the first time
func (r *Registry) Session(ctx context.Context, id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s
	}

	hist := history.New(kvstore.WithPrefix(r.cfg.Store, id), history.WithClock(r.cfg.Now))
	hist.Load(ctx)

	s := NewSession(id, selection.NewMachine(r.cfg.Catalog, nil), r.cfg.Generator, hist, r.cfg.Recorder, r.cfg.MaxUpload)
	s.touch(now)
	r.sessions[id] = s

	logger.Debug("Created session", logger.Fields{"session_id": id, "sessions": len(r.sessions)})
	return s
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.cfg.Now().Add(-r.cfg.IdleTimeout)
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info("Evicted idle sessions", logger.Fields{"removed": removed, "remaining": len(r.sessions)})
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
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
