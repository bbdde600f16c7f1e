package companion

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// SessionTimeout is how long an idle conversation is kept.
	SessionTimeout = 30 * time.Minute
	// CleanupInterval is how often idle conversations are swept.
	CleanupInterval = 5 * time.Minute
)

// Manager holds conversations by id. New sessions share the manager's options.
type Manager struct {
	opts     SessionOptions
	sessions map[string]*Session
	mu       sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	onCreated func(id string)
	onDeleted func(id string)
}

// NewManager creates a manager and starts the idle sweep.
func NewManager(opts SessionOptions) *Manager {
	if opts.Responder == nil {
		opts.Responder = NewResponder(nil, nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
	go m.cleanupLoop()
	return m
}

// Responder returns the responder shared by all sessions.
func (m *Manager) Responder() *Responder { return m.opts.Responder }

// ProactiveDefault reports whether new sessions start with proactive messages on.
func (m *Manager) ProactiveDefault() bool { return !m.opts.ProactiveDisabled }

// SetOnSessionCreated sets a callback for new sessions.
func (m *Manager) SetOnSessionCreated(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreated = fn
}

// SetOnSessionDeleted sets a callback for removed sessions.
func (m *Manager) SetOnSessionDeleted(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDeleted = fn
}

// GetOrCreate returns the session for id, creating it if needed.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	if s, ok = m.sessions[id]; ok {
		m.mu.Unlock()
		return s
	}
	s = NewSession(id, m.opts)
	m.sessions[id] = s
	onCreated := m.onCreated
	m.mu.Unlock()

	log.Info().Str("session", id).Msg("Conversation started")
	if onCreated != nil {
		onCreated(id)
	}
	return s
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// DeleteSession removes a session. Deleting an unknown id is a no-op.
func (m *Manager) DeleteSession(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	onDeleted := m.onDeleted
	m.mu.Unlock()

	if !ok {
		return
	}
	log.Info().Str("session", id).Msg("Conversation removed")
	if onDeleted != nil {
		onDeleted(id)
	}
}

// GetActiveSessionCount returns the number of sessions.
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops the idle sweep.
func (m *Manager) Shutdown() {
	m.cancel()
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanupIdle(time.Now())
		}
	}
}

// cleanupIdle removes idle sessions untouched for SessionTimeout.
func (m *Manager) cleanupIdle(now time.Time) int {
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.State() == StateIdle && now.Sub(s.LastActive()) > SessionTimeout {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.DeleteSession(id)
	}
	if len(stale) > 0 {
		log.Debug().Int("removed", len(stale)).Msg("Idle conversations swept")
	}
	return len(stale)
}
