package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// FailureKind classifies a generation-service failure. The classification is
// done once, at the transport adapter, so the rest of the pipeline never
// inspects raw error text.
type FailureKind int

const (
	// FailureRetryable covers transient upstream unavailability or overload.
	FailureRetryable FailureKind = iota
	// FailureRateLimited is retryable but keeps its own category because the
	// remediation advice shown to the clinician differs.
	FailureRateLimited
	// FailureFatal covers client-side errors (bad request, unauthorized,
	// forbidden). Never retried.
	FailureFatal
)

// GenerationError is a classified generation failure.
type GenerationError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate-limited"
	case FailureFatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// Generator submits one prompt to the generation service and returns the raw
// answer text. Implementations return *GenerationError on failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// geminiGenerator calls the Gemini API.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Generator backed by the given Gemini model.
func NewGeminiGenerator(client *genai.Client, model string) Generator {
	return &geminiGenerator{client: client, model: model}
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", &GenerationError{Kind: FailureRetryable, Err: errors.New("gemini returned no candidates")}
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	if responseText.Len() == 0 {
		return "", &GenerationError{Kind: FailureRetryable, Err: errors.New("gemini returned an empty response")}
	}
	return responseText.String(), nil
}

// classifyGeminiError maps transport-level failures into the fixed taxonomy.
func classifyGeminiError(err error) *GenerationError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: FailureFatal, Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403, 404:
			return &GenerationError{Kind: FailureFatal, Err: err}
		case 429:
			return &GenerationError{Kind: FailureRateLimited, Err: err}
		}
		// 5xx and anything else from the API is treated as transient.
		return &GenerationError{Kind: FailureRetryable, Err: err}
	}

	// Network-level failures (connection reset, DNS, timeouts) are transient.
	return &GenerationError{Kind: FailureRetryable, Err: err}
}

// RetryConfig controls the generation retry loop.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the first one; 2 retries
	// means 3 attempts total.
	MaxRetries int
	// BaseDelay is the wait before the first retry; it grows by 1.5x after
	// each retry.
	BaseDelay time.Duration

	// sleep is injectable for tests; nil means a real, context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig matches the upstream service's overload behavior: a
// short first wait, 1.5x growth, three attempts total.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// GenerateWithRetry runs the generator with the retry policy: retryable and
// rate-limited failures are re-attempted with growing delays, fatal failures
// propagate immediately, and exhausting the budget surfaces the last failure.
func GenerateWithRetry(ctx context.Context, g Generator, prompt string, cfg RetryConfig) (string, error) {
	sleep := cfg.sleep
	if sleep == nil {
		sleep = ctxSleep
	}

	delay := cfg.BaseDelay
	var lastErr *GenerationError
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		text, err := g.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}

		genErr := asGenerationError(err)
		if genErr.Kind == FailureFatal {
			return "", genErr
		}
		lastErr = genErr

		if attempt == cfg.MaxRetries {
			break
		}
		log.Printf("SERVICE: Generation attempt %d failed (%s), retrying in %v: %v", attempt+1, genErr.Kind, delay, genErr.Err)
		if err := sleep(ctx, delay); err != nil {
			return "", &GenerationError{Kind: FailureFatal, Err: err}
		}
		delay = delay * 3 / 2
	}
	return "", lastErr
}

// asGenerationError keeps already-classified failures and wraps anything else
// as transient.
func asGenerationError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	return &GenerationError{Kind: FailureRetryable, Err: err}
}
