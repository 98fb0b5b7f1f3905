package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing(context.Context) error    { return errUpstream }
func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test", Config{Threshold: 3, Timeout: time.Minute, SuccessThreshold: 1, MaxHalfOpen: 1}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Execute(ctx, failing)
		require.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, StateOpen, b.State())

	err := b.Execute(ctx, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("test", Config{Threshold: 1, Timeout: 10 * time.Millisecond, SuccessThreshold: 2, MaxHalfOpen: 5}, nil)
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failing))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)

	// First success moves to half-open, second closes the circuit
	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("test", Config{Threshold: 1, Timeout: 10 * time.Millisecond, SuccessThreshold: 3, MaxHalfOpen: 5}, nil)
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)

	require.Error(t, b.Execute(ctx, failing))
	assert.Equal(t, StateOpen, b.State())
}
