package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	// given
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry[*Flow](time.Minute)
	r.now = func() time.Time { return now }
	flow := &Flow{phase: PhaseEditing}

	// when
	token := r.Open(flow)

	// then
	got, ok := r.Get(token)
	assert.True(t, ok)
	assert.Same(t, flow, got)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Expiry(t *testing.T) {
	// given
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry[int](time.Minute)
	r.now = func() time.Time { return now }
	old := r.Open(1)

	// when
	now = now.Add(2 * time.Minute)

	// then
	_, ok := r.Get(old)
	assert.False(t, ok)

	fresh := r.Open(2)
	assert.Equal(t, 1, r.Len(), "expired entries are pruned on open")
	got, ok := r.Get(fresh)
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}
