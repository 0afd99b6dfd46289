package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_BurstThenReject(t *testing.T) {
	l := New(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New(1, 1)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "another client has its own bucket")
}

func TestAllow_ZeroRateDisablesLimiting(t *testing.T) {
	l := New(0, 0)

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("anyone"))
	}
	assert.Equal(t, 0, l.Len(), "disabled limiter tracks nothing")
}

func TestPrune_DropsIdleClients(t *testing.T) {
	l := New(10, 10)
	l.idleTTL = 10 * time.Millisecond

	l.Allow("old")
	assert.Equal(t, 1, l.Len())

	time.Sleep(25 * time.Millisecond)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Len(), "idle bucket pruned, fresh one kept")
}
