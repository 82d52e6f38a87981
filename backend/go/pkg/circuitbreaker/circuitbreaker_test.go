package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() (interface{}, error) { return nil, errBoom }
func ok() (interface{}, error)   { return "ok", nil }

func TestBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var changes []string
	cb := New(2, 1, time.Second,
		WithClock(func() time.Time { return now }),
		WithOnStateChange(func(from, to State) { changes = append(changes, from.String()+"->"+to.String()) }),
	)

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, Closed, cb.State())
	_, _ = cb.Execute(fail)
	assert.Equal(t, Open, cb.State())

	called := false
	_, err = cb.Execute(func() (interface{}, error) { called = true; return nil, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Second)
	res, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Closed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, changes)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := New(1, 2, time.Second, WithClock(func() time.Time { return now }))

	_, _ = cb.Execute(fail)
	now = now.Add(2 * time.Second)
	assert.Equal(t, HalfOpen, cb.State())
	_, _ = cb.Execute(fail)
	assert.Equal(t, Open, cb.State())
}

func TestBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	cb := New(1, 1, time.Minute, WithIsFailure(func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}))

	_, err := cb.Execute(func() (interface{}, error) { return nil, context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, cb.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Closed, cb.State())
}
