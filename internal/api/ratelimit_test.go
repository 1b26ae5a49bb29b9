package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiter_Defaults(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(rateLimitSettings{})
	assert.Equal(t, defaultRateBurst, l.burst)
	assert.InDelta(t, defaultRatePerSecond, float64(l.limit), 1e-9)
}

func TestIPLimiter_BurstExhaustion(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(rateLimitSettings{PerSecond: 0.001, Burst: 2})

	assert.True(t, l.allow("198.51.100.1"))
	assert.True(t, l.allow("198.51.100.1"))
	assert.False(t, l.allow("198.51.100.1"))

	// Other IPs have their own bucket.
	assert.True(t, l.allow("198.51.100.2"))
}

func TestIPLimiter_SweepEvictsIdleClients(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(rateLimitSettings{PerSecond: 0.001, Burst: 1})

	require.True(t, l.allow("198.51.100.1"))
	require.False(t, l.allow("198.51.100.1"))

	l.mu.Lock()
	l.clients["198.51.100.1"].lastSeen = time.Now().Add(-limiterIdleEviction - time.Minute)
	l.nextSweep = time.Now().Add(-time.Second)
	l.mu.Unlock()

	// The evicted bucket is rebuilt with a fresh burst.
	assert.True(t, l.allow("198.51.100.1"))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.clients, 1)
}
