package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig configures retry behavior for external requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first try).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1 second
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 30 seconds
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	// Default: 2.0 (exponential backoff)
	Multiplier float64

	// Jitter adds randomness to delays to prevent thundering herd.
	// Value between 0 and 1, where 0.1 means ±10% jitter.
	// Default: 0.1
	Jitter float64

	// RetryableErrors is a list of error types that should trigger a retry.
	// If nil, all errors are retryable except context cancellation.
	RetryableErrors []error

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns a default retry configuration with exponential backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// QuickRetryConfig returns a configuration tuned for best-effort asset
// downloads that sit on the document-assembly path: short delays, two
// attempts, so a dead host costs little wall-clock time.
func QuickRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// calculateDelay calculates the delay for a given attempt number.
func (c *RetryConfig) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.Jitter > 0 {
		jitterRange := delay * c.Jitter
		delay = delay - jitterRange + (rand.Float64() * 2 * jitterRange)
	}

	return time.Duration(delay)
}

// isRetryable determines if an error should trigger a retry.
func (c *RetryConfig) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Never retry context errors
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if len(c.RetryableErrors) == 0 {
		return true
	}

	for _, retryableErr := range c.RetryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}

	return false
}

// RetryResult contains the result of a retry operation.
type RetryResult struct {
	// Attempts is the number of attempts made.
	Attempts int

	// TotalDuration is the total time spent including all retries.
	TotalDuration time.Duration

	// Errors contains all errors encountered during retries.
	Errors []error

	// Success indicates if the operation ultimately succeeded.
	Success bool
}

// LastError returns the last error encountered, or nil if successful.
func (r *RetryResult) LastError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[len(r.Errors)-1]
}

// AllErrors returns a combined error with all attempt errors.
func (r *RetryResult) AllErrors() error {
	if len(r.Errors) == 0 {
		return nil
	}

	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = fmt.Sprintf("attempt %d: %v", i+1, err)
	}
	return fmt.Errorf("all attempts failed: %s", strings.Join(msgs, "; "))
}

// Retry executes a function with retry logic.
func Retry[T any](ctx context.Context, config *RetryConfig, fn func(ctx context.Context) (T, error)) (T, *RetryResult) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	result := &RetryResult{}
	start := time.Now()

	var zero T
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		value, err := fn(ctx)
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(start)
			return value, result
		}

		result.Errors = append(result.Errors, err)

		if attempt >= config.MaxAttempts || !config.isRetryable(err) {
			break
		}

		delay := config.calculateDelay(attempt)

		if config.OnRetry != nil {
			config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.TotalDuration = time.Since(start)
			return zero, result
		case <-time.After(delay):
		}
	}

	result.TotalDuration = time.Since(start)
	return zero, result
}

// MultiURLResult contains the result of attempting multiple URLs.
type MultiURLResult struct {
	// SuccessfulURL is the URL that succeeded, if any.
	SuccessfulURL string

	// AttemptedURLs is the list of URLs that were attempted.
	AttemptedURLs []string

	// URLErrors maps each URL to the errors encountered.
	URLErrors map[string][]error

	// TotalAttempts is the total number of attempts across all URLs.
	TotalAttempts int

	// TotalDuration is the total time spent across all URLs.
	TotalDuration time.Duration

	// Success indicates if any URL succeeded.
	Success bool
}

// AllErrors returns a combined error with all URL errors.
func (r *MultiURLResult) AllErrors() error {
	if r.Success {
		return nil
	}

	var msgs []string
	for _, url := range r.AttemptedURLs {
		if errs, ok := r.URLErrors[url]; ok && len(errs) > 0 {
			errStrs := make([]string, len(errs))
			for i, err := range errs {
				errStrs[i] = err.Error()
			}
			msgs = append(msgs, fmt.Sprintf("%s: [%s]", url, strings.Join(errStrs, ", ")))
		}
	}

	if len(msgs) == 0 {
		return fmt.Errorf("all URLs failed")
	}
	return fmt.Errorf("all URLs failed: %s", strings.Join(msgs, "; "))
}

// RetryMultiURL attempts to execute a function across multiple URLs with
// retry logic. It tries each URL in order, with retries per URL, and
// returns on first success.
func RetryMultiURL[T any](
	ctx context.Context,
	config *RetryConfig,
	urls []string,
	fn func(ctx context.Context, url string) (T, error),
) (T, *MultiURLResult) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	result := &MultiURLResult{
		AttemptedURLs: make([]string, 0, len(urls)),
		URLErrors:     make(map[string][]error),
	}
	start := time.Now()

	var zero T
	for _, url := range urls {
		result.AttemptedURLs = append(result.AttemptedURLs, url)

		value, retryResult := Retry(ctx, config, func(ctx context.Context) (T, error) {
			return fn(ctx, url)
		})

		result.TotalAttempts += retryResult.Attempts
		result.URLErrors[url] = retryResult.Errors

		if retryResult.Success {
			result.SuccessfulURL = url
			result.Success = true
			result.TotalDuration = time.Since(start)
			return value, result
		}

		if ctx.Err() != nil {
			break
		}
	}

	result.TotalDuration = time.Since(start)
	return zero, result
}
