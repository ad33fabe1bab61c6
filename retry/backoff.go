// Package retry provides the exponential backoff schedule used when a push
// activation cannot reach the delivery provider.
package retry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy describes how often a failed activation is retried and when it
// is abandoned.
//
// The delay after the n-th failed attempt is
// min(BaseDelay * Multiplier^(n-1), MaxDelay).
//
// With DefaultStrategy (15s base, 2.0 multiplier, 5m cap, 5 attempts):
//
//	Attempt 1 failed: retry after 15s
//	Attempt 2 failed: retry after 30s
//	Attempt 3 failed: retry after 1m
//	Attempt 4 failed: retry after 2m
//	Attempt 5 failed: abandon
type Strategy struct {
	MaxAttempts int           // Attempts before the activation is abandoned
	BaseDelay   time.Duration // Delay after the first failed attempt
	MaxDelay    time.Duration // Upper bound for any delay
	Multiplier  float64       // Growth factor between consecutive delays
}

// DefaultStrategy returns the retry strategy used by the activation worker.
// Pushes are time sensitive, so the schedule is short.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts: 5,
		BaseDelay:   15 * time.Second,
		MaxDelay:    5 * time.Minute,
		Multiplier:  2.0,
	}
}

// Validate reports a strategy that cannot produce a usable schedule.
func (s Strategy) Validate() error {
	switch {
	case s.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be >= 1, got %d", s.MaxAttempts)
	case s.BaseDelay < 0:
		return fmt.Errorf("base delay must be >= 0, got %v", s.BaseDelay)
	case s.MaxDelay < s.BaseDelay:
		return fmt.Errorf("max delay %v is below base delay %v", s.MaxDelay, s.BaseDelay)
	case s.Multiplier < 1:
		return fmt.Errorf("multiplier must be >= 1, got %v", s.Multiplier)
	}
	return nil
}

// Backoff returns the delay to wait after the given failed attempt (1-based).
func (s Strategy) Backoff(attempt int) time.Duration {
	if s.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return min(s.BaseDelay, s.MaxDelay)
	}

	delay := float64(s.BaseDelay) * math.Pow(s.Multiplier, float64(attempt-1))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// Exhausted reports whether attempts failed attempts leave no retry.
func (s Strategy) Exhausted(attempts int) bool {
	return attempts >= s.MaxAttempts
}

// Schedule returns a human-readable description of the retry schedule,
// suitable for startup logs.
func (s Strategy) Schedule() string {
	var b strings.Builder
	b.WriteString("Retry Schedule:\n")
	for i := 1; i <= s.MaxAttempts; i++ {
		if s.Exhausted(i) {
			fmt.Fprintf(&b, "  Attempt %d failed: abandon\n", i)
			break
		}
		fmt.Fprintf(&b, "  Attempt %d failed: retry after %v\n", i, s.Backoff(i))
	}
	return b.String()
}
