package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator fails with the scripted errors in order, then succeeds.
type scriptedGenerator struct {
	failures []error
	answer   string
	attempts int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.attempts++
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		return "", err
	}
	return g.answer, nil
}

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestGenerateWithRetryBacksOffThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&GenerationError{Kind: FailureRetryable, Err: errors.New("overloaded")},
			&GenerationError{Kind: FailureRetryable, Err: errors.New("overloaded")},
		},
		answer: "jawaban",
	}

	var delays []time.Duration
	base := 100 * time.Millisecond
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: base, sleep: recordingSleep(&delays)}

	answer, err := GenerateWithRetry(context.Background(), gen, "prompt", cfg)
	require.NoError(t, err)
	assert.Equal(t, "jawaban", answer)
	assert.Equal(t, 3, gen.attempts)
	assert.Equal(t, []time.Duration{base, base * 3 / 2}, delays)
}

func TestGenerateWithRetryFatalShortCircuits(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&GenerationError{Kind: FailureFatal, Err: errors.New("unauthorized")},
		},
		answer: "never reached",
	}

	var delays []time.Duration
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Second, sleep: recordingSleep(&delays)}

	_, err := GenerateWithRetry(context.Background(), gen, "prompt", cfg)
	require.Error(t, err)
	assert.Equal(t, 1, gen.attempts)
	assert.Empty(t, delays)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, FailureFatal, genErr.Kind)
}

func TestGenerateWithRetrySurfacesLastFailureWhenExhausted(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&GenerationError{Kind: FailureRetryable, Err: errors.New("overloaded")},
			&GenerationError{Kind: FailureRetryable, Err: errors.New("overloaded")},
			&GenerationError{Kind: FailureRateLimited, Err: errors.New("quota")},
		},
	}

	var delays []time.Duration
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, sleep: recordingSleep(&delays)}

	_, err := GenerateWithRetry(context.Background(), gen, "prompt", cfg)
	require.Error(t, err)
	assert.Equal(t, 3, gen.attempts)

	// The last failure's category survives for fallback selection.
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, FailureRateLimited, genErr.Kind)
}

func TestGenerateWithRetryRetriesRateLimited(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&GenerationError{Kind: FailureRateLimited, Err: errors.New("quota")},
		},
		answer: "jawaban",
	}

	var delays []time.Duration
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, sleep: recordingSleep(&delays)}

	answer, err := GenerateWithRetry(context.Background(), gen, "prompt", cfg)
	require.NoError(t, err)
	assert.Equal(t, "jawaban", answer)
	assert.Len(t, delays, 1)
}

func TestGenerateWithRetryStopsOnCancelledSleep(t *testing.T) {
	gen := &scriptedGenerator{
		failures: []error{
			&GenerationError{Kind: FailureRetryable, Err: errors.New("overloaded")},
		},
		answer: "never reached",
	}

	cfg := RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		sleep: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
	}

	_, err := GenerateWithRetry(context.Background(), gen, "prompt", cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.attempts)
}

func TestAsGenerationErrorWrapsUnclassified(t *testing.T) {
	plain := errors.New("connection reset by peer")
	genErr := asGenerationError(plain)
	assert.Equal(t, FailureRetryable, genErr.Kind)
	assert.ErrorIs(t, genErr, plain)

	classified := &GenerationError{Kind: FailureFatal, Err: errors.New("bad request")}
	assert.Same(t, classified, asGenerationError(classified))
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Positive(t, cfg.BaseDelay)
}
