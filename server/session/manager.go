package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/pose-analyzer/server/config"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live session controllers, keyed by UUID. A janitor
// ticker expires sessions that have gone quiet so abandoned dashboard tabs
// do not accumulate state.
type Manager struct {
	mu       sync.RWMutex
	cfg      config.AnalysisConfig
	logger   *zap.Logger
	sessions map[string]*Controller
	janitor  *time.Ticker
	stopCh   chan struct{}
}

func NewManager(cfg config.AnalysisConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Controller),
		stopCh:   make(chan struct{}),
	}

	m.janitor = time.NewTicker(time.Minute)
	go m.expireIdleSessions()

	return m
}

// Create registers a new idle session controller and returns it.
func (m *Manager) Create() *Controller {
	ctrl := NewController(uuid.NewString(), m.cfg, m.logger)

	m.mu.Lock()
	m.sessions[ctrl.ID()] = ctrl
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", ctrl.ID()),
		zap.Int("active_sessions", count))
	return ctrl
}

func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctrl, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Remove stops and discards a session. Removing an unknown ID is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		ctrl.Stop()
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the janitor and every remaining session.
func (m *Manager) Close() {
	m.janitor.Stop()
	close(m.stopCh)

	m.mu.Lock()
	sessions := make([]*Controller, 0, len(m.sessions))
	for id, ctrl := range m.sessions {
		sessions = append(sessions, ctrl)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Stop()
	}
}

func (m *Manager) expireIdleSessions() {
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.janitor.C:
			m.sweepExpired(time.Now().Add(-m.cfg.SessionIdleTimeout))
		}
	}
}

// sweepExpired removes and stops every session whose last activity predates
// the cutoff.
func (m *Manager) sweepExpired(cutoff time.Time) {
	m.mu.Lock()
	var expired []*Controller
	for id, ctrl := range m.sessions {
		if ctrl.LastActivity().Before(cutoff) {
			expired = append(expired, ctrl)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Stop()
		m.logger.Info("Expired idle session", zap.String("session_id", ctrl.ID()))
	}
}
