package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(3, time.Millisecond, 5*time.Millisecond)
	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(3, time.Millisecond, 5*time.Millisecond)
	attempts := 0
	sentinel := errors.New("still broken")
	err := policy.Do(context.Background(), func() error {
		attempts++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryContextErrors(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(5, time.Millisecond, 5*time.Millisecond)
	attempts := 0
	err := policy.Do(context.Background(), func() error {
		attempts++
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoHonorsCancellationBetweenAttempts(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(10, 50*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := policy.Do(ctx, func() error {
		attempts++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(3, time.Millisecond, time.Millisecond)
	assert.False(t, policy.ShouldRetry(nil, 1))
	assert.True(t, policy.ShouldRetry(errors.New("boom"), 1))
	assert.True(t, policy.ShouldRetry(errors.New("boom"), 2))
	assert.False(t, policy.ShouldRetry(errors.New("boom"), 3))
	assert.False(t, policy.ShouldRetry(context.DeadlineExceeded, 1))
}

func TestBackoffIsBoundedAndGrows(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(5, 10*time.Millisecond, 80*time.Millisecond)
	for attempt := 0; attempt < 6; attempt++ {
		d := policy.Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestNewPolicyWithClampsAttempts(t *testing.T) {
	t.Parallel()

	policy := NewPolicyWith(0, time.Millisecond, time.Millisecond)
	assert.Equal(t, 1, policy.MaxAttempts())
}
