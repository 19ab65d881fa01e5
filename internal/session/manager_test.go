package session

import (
	"testing"
	"time"

	"afunding/internal/campaigns"
	"afunding/internal/ledger/ledgertest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(newContract(t, ledgertest.NewBackend()), sender, campaigns.SequenceConfig{})

	s := m.Create()
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err, "session ids are uuids")

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = m.Get("unknown")
	assert.False(t, ok)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager(newContract(t, ledgertest.NewBackend()), sender, campaigns.SequenceConfig{})

	first, created := m.GetOrCreate("")
	assert.True(t, created)

	again, created := m.GetOrCreate(first.ID())
	assert.False(t, created)
	assert.Same(t, first, again)

	other, created := m.GetOrCreate("stale-cookie")
	assert.True(t, created)
	assert.NotEqual(t, first.ID(), other.ID())
	assert.Equal(t, 2, m.Len())

	m.Remove(first.ID())
	assert.Equal(t, 1, m.Len())
}

func TestManager_Sweep(t *testing.T) {
	m := NewManager(newContract(t, ledgertest.NewBackend()), sender, campaigns.SequenceConfig{})
	idle := m.Create()
	fresh := m.Create()

	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	removed := m.Sweep(time.Now(), 30*time.Minute)

	assert.Equal(t, 1, removed)
	_, ok := m.Get(idle.ID())
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID())
	assert.True(t, ok)
}
