package session

import (
	"log/slog"
	"sync"
	"time"

	"afunding/internal/campaigns"
	"afunding/internal/ledger"
	"afunding/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Manager keeps sessions in memory. Nothing is persisted.
type Manager struct {
	contract *ledger.Contract
	sender   common.Address
	config   campaigns.SequenceConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions share contract
func NewManager(contract *ledger.Contract, sender common.Address, config campaigns.SequenceConfig) *Manager {
	return &Manager{
		contract: contract,
		sender:   sender,
		config:   config,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Create starts a new session with a random id
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.contract, m.sender, m.config)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	slog.Debug("Session created", "session", s.ID())
	return s
}

// GetOrCreate returns the session with id, or a new one if id is unknown
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Remove drops a session and its snapshot
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than idle and returns how many
// were removed
func (m *Manager) Sweep(now time.Time, idle time.Duration) int {
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > idle {
			delete(m.sessions, id)
			removed++
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	if removed > 0 {
		slog.Info("Idle sessions removed", "removed", removed, "remaining", count)
	}
	return removed
}
