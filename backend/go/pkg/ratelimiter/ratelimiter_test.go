package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	tb := newTokenBucket(1, 2, clk.now)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clk.advance(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clk.advance(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "refill is capped at capacity")
}

func TestKeyedLimiter_IndependentBudgets(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	l, err := newKeyedLimiter(1, 1, 10, clk.now)
	require.NoError(t, err)

	assert.True(t, l.AllowKey("alice"))
	assert.False(t, l.AllowKey("alice"))
	assert.True(t, l.AllowKey("bob"))

	clk.advance(time.Second)
	assert.True(t, l.AllowKey("alice"))
}

func TestKeyedLimiter_EvictedKeyStartsFull(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	l, err := newKeyedLimiter(1, 1, 1, clk.now)
	require.NoError(t, err)

	assert.True(t, l.AllowKey("alice"))
	assert.True(t, l.AllowKey("bob"))
	assert.True(t, l.AllowKey("alice"))
}

func TestNewKeyedLimiter_RejectsZeroKeys(t *testing.T) {
	_, err := NewKeyedLimiter(1, 1, 0)
	assert.Error(t, err)
}
