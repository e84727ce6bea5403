package dashboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/domain/layout"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// Defaults.
const (
	DefaultTTL             = 30 * time.Minute
	DefaultMaxSessions     = 10000
	DefaultJanitorInterval = time.Minute
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")

// ErrSessionLimit is returned by Create when MaxSessions are live.
var ErrSessionLimit = apperrors.New(apperrors.ErrCodeSessionLimit, "too many active sessions")

// Config bounds the session table.
type Config struct {
	TTL               time.Duration
	MaxSessions       int
	JanitorInterval   time.Duration
	CompactBreakpoint int
}

// Metrics receives session observations.
type Metrics interface {
	SetActiveSessions(n int)
	IncSessionEvent(eventType string)
}

type nopMetrics struct{}

func (nopMetrics) SetActiveSessions(int)  {}
func (nopMetrics) IncSessionEvent(string) {}

// Option configures a Manager.
type Option func(*Manager)

// WithInsight sets the summary generator.
func WithInsight(g InsightGenerator) Option { return func(m *Manager) { m.deps.insight = g } }

// WithOptionCache shares an option cache with other readers of the store.
func WithOptionCache(c *filter.OptionCache) Option {
	return func(m *Manager) {
		if c != nil {
			m.deps.options = c
		}
	}
}

// WithMetrics records session metrics.
func WithMetrics(mt Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.deps.now = now } }

// Manager is the in-memory session table.
type Manager struct {
	cfg     Config
	deps    *deps
	metrics Metrics
	logger  logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager returns a Manager reading from store.
func NewManager(store *feature.Store, cfg Config, logger logging.Logger, opts ...Option) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = DefaultJanitorInterval
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("dashboard")
	m := &Manager{
		cfg: cfg,
		deps: &deps{
			store:    store,
			options:  &filter.OptionCache{},
			detector: layout.NewDetector(cfg.CompactBreakpoint),
			logger:   logger,
			now:      time.Now,
		},
		metrics:  nopMetrics{},
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create opens a session for a viewport of the given width.
func (m *Manager) Create(width int) (State, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		m.logger.Warn("session limit reached", logging.Int("max", m.cfg.MaxSessions))
		return State{}, ErrSessionLimit
	}
	s := newSession(uuid.NewString(), width, m.deps)
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	m.logger.Debug("session created", logging.String("session_id", s.id), logging.Int("width", width))
	return s.State(), nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(s) {
		return nil, ErrSessionNotFound.WithDetail("id=" + id)
	}
	return s, nil
}

func (m *Manager) expired(s *Session) bool {
	return m.deps.now().Sub(s.LastSeen()) > m.cfg.TTL
}

// State returns the session document, draining queued camera commands.
func (m *Manager) State(id string) (State, error) {
	s, err := m.Get(id)
	if err != nil {
		return State{}, err
	}
	return s.State(), nil
}

// Apply posts an event to a session.
func (m *Manager) Apply(id string, ev Event) (State, error) {
	s, err := m.Get(id)
	if err != nil {
		return State{}, err
	}
	st, err := s.Apply(ev)
	if err != nil {
		return State{}, err
	}
	m.metrics.IncSessionEvent(string(ev.Type))
	return st, nil
}

// View returns the filtered projection of a session.
func (m *Manager) View(id string) (View, error) {
	s, err := m.Get(id)
	if err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// GenerateInsight runs the AI summary for a session.
func (m *Manager) GenerateInsight(ctx context.Context, id string) (InsightState, error) {
	s, err := m.Get(id)
	if err != nil {
		return InsightState{}, err
	}
	return s.GenerateInsight(ctx), nil
}

// Options returns the filter option sets of the current collection.
func (m *Manager) Options() filter.OptionSets {
	return m.deps.options.Get(m.deps.store.Snapshot())
}

// Delete closes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound.WithDetail("id=" + id)
	}
	m.metrics.SetActiveSessions(n)
	return nil
}

// Len returns the number of sessions, expired ones not yet swept included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the session identifiers in lexical order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Sweep removes expired sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if removed > 0 {
		m.metrics.SetActiveSessions(n)
		m.logger.Debug("expired sessions swept", logging.Int("removed", removed), logging.Int("active", n))
	}
	return removed
}

// Start runs the janitor until ctx ends or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(m.cfg.JanitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}(m.done)
}

// Stop halts the janitor.
func (m *Manager) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
