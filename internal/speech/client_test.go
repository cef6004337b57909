package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures backoff durations without actually waiting.
func recordingSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

func TestSynthesizeSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		calls++
		return []byte{1, 2, 3}, nil
	}, 3)

	var sleeps []time.Duration
	c.sleep = recordingSleep(&sleeps)

	data, err := c.Synthesize(context.Background(), "Joe: hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestSynthesizeRetriesWithExponentialBackoff(t *testing.T) {
	calls := 0
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("transient upstream error %d", calls)
		}
		return []byte{7}, nil
	}, 3)

	var sleeps []time.Duration
	c.sleep = recordingSleep(&sleeps)

	data, err := c.Synthesize(context.Background(), "Joe: hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, data)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeps)
}

func TestSynthesizeExhaustedRetriesReturnsFatal(t *testing.T) {
	calls := 0
	last := errors.New("upstream down")
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		calls++
		return nil, last
	}, 3)

	var sleeps []time.Duration
	c.sleep = recordingSleep(&sleeps)

	_, err := c.Synthesize(context.Background(), "Joe: hi")
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 3, fatal.Attempts)
	assert.ErrorIs(t, err, last)

	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeps)
}

func TestSynthesizeQuotaErrorShortCircuits(t *testing.T) {
	calls := 0
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		calls++
		return nil, errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
	}, 3)

	var sleeps []time.Duration
	c.sleep = recordingSleep(&sleeps)

	_, err := c.Synthesize(context.Background(), "Joe: hi")
	require.Error(t, err)

	var quota *QuotaError
	assert.ErrorAs(t, err, &quota)
	assert.Equal(t, 1, calls, "quota exhaustion must not be retried")
	assert.Empty(t, sleeps)
}

func TestSynthesizeEmptyAudioIsRetriable(t *testing.T) {
	calls := 0
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		calls++
		if calls < 2 {
			return nil, nil // success with no audio payload
		}
		return []byte{9}, nil
	}, 3)
	c.sleep = recordingSleep(&[]time.Duration{})

	data, err := c.Synthesize(context.Background(), "Joe: hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data)
	assert.Equal(t, 2, calls)
}

func TestSynthesizeAbortsWhenContextCancelledDuringBackoff(t *testing.T) {
	c := newClient(func(ctx context.Context, text string) ([]byte, error) {
		return nil, errors.New("transient")
	}, 3)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := c.Synthesize(context.Background(), "Joe: hi")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsQuotaExhausted(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"googleapi: Error 429: too many requests", true},
		{"RESOURCE_EXHAUSTED: quota exceeded", true},
		{"rate limit hit, slow down", true},
		{"Quota exceeded for requests per minute", true},
		{"connection reset by peer", false},
		{"invalid argument", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isQuotaExhausted(errors.New(tt.msg)))
		})
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	_, err := NewClient(context.Background(), Config{APIKey: "k"})
	assert.Error(t, err)
}
