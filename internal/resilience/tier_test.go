package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier_StopsAtCeiling(t *testing.T) {
	tier := Tier{Name: "click", Ceiling: 3, Backoff: FixedDelay(time.Millisecond)}

	var attempts []int
	failure := errors.New("click timed out")
	err := tier.Run(context.Background(), func(ctx context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		return failure
	}, nil)

	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []int{1, 2, 3}, attempts)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, "click", ex.Tier)
	assert.Equal(t, 3, ex.Attempts)
}

func TestTier_ZeroCeilingRunsOnce(t *testing.T) {
	calls := 0
	err := Tier{Name: "once"}.Run(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("nope")
	}, nil)

	assert.True(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
}

func TestTier_SucceedsMidway(t *testing.T) {
	tier := Tier{Name: "entry", Ceiling: 5, Backoff: FixedDelay(time.Millisecond)}

	var retries []int
	err := tier.Run(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retries = append(retries, attempt)
		assert.Equal(t, time.Millisecond, next)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestTier_HopelessErrorShortCircuits(t *testing.T) {
	tier := Tier{Name: "entry", Ceiling: 5, Backoff: FixedDelay(time.Millisecond)}
	perm := verdict(false)

	calls := 0
	err := tier.Run(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return perm
	}, nil)

	assert.Equal(t, error(perm), err)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
}

func TestTier_CustomShouldRetry(t *testing.T) {
	stop := errors.New("stop")
	tier := Tier{
		Name:        "custom",
		Ceiling:     4,
		Backoff:     FixedDelay(time.Millisecond),
		ShouldRetry: func(err error) bool { return !errors.Is(err, stop) },
	}

	calls := 0
	err := tier.Run(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt == 2 {
			return stop
		}
		return errors.New("again")
	}, nil)

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestTier_CustomWaitInterrupts(t *testing.T) {
	interrupted := errors.New("restart requested")
	tier := Tier{
		Name:    "burst",
		Ceiling: 10,
		Backoff: FixedDelay(time.Hour),
		Wait: func(ctx context.Context, d time.Duration) error {
			return interrupted
		},
	}

	calls := 0
	err := tier.Run(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("miss")
	}, nil)

	assert.ErrorIs(t, err, interrupted)
	assert.Equal(t, 1, calls)
}

func TestTier_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Tier{Name: "x", Ceiling: 3}.Run(ctx, func(ctx context.Context, attempt int) error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
