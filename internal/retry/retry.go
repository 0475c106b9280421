// Package retry implements bounded exponential-backoff retries for the
// workflow runner's HTTP fetches (spec §7's "Transient I/O" error kind:
// retry up to maximum_fetch_count, then treat as a template miss).
//
// Adapted from a rate-limit-oriented retry helper: the shape
// (MaxRetries/InitialWait/MaxWait/Factor, a shouldRetry predicate,
// exponential backoff) is unchanged, but the predicate this package
// ships (IsTransient) classifies network errors and HTTP 5xx instead
// of provider rate-limit responses.
package retry

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// Config holds retry parameters.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Factor      float64
}

// DefaultConfig allows three retries after the first attempt (four
// attempts in all). The workflow runner replaces MaxRetries with one
// less than its maximum_fetch_count unless given WithRetryConfig.
var DefaultConfig = Config{
	MaxRetries:  3,
	InitialWait: time.Second,
	MaxWait:     10 * time.Second,
	Factor:      2.0,
}

// WithRetry runs operation, retrying while shouldRetry(err) is true, up
// to cfg.MaxRetries additional attempts with exponential backoff.
func WithRetry(operation func() (interface{}, error), shouldRetry func(error) bool, cfg Config) (interface{}, error) {
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := operation()
		if err == nil || !shouldRetry(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			return nil, fmt.Errorf("retry: operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		log.Printf("retry: transient error: %v; retrying in %v (attempt %d/%d)", err, retryWait, attempt+1, cfg.MaxRetries)
		time.Sleep(retryWait)
		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}

// IsTransient classifies network errors and 5xx-flavored messages as
// retryable, the workflow runner's shouldRetry predicate.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return true
	case strings.Contains(msg, "connection refused"):
		return true
	case strings.Contains(msg, "no such host"):
		return true
	case strings.Contains(msg, "eof"):
		return true
	case strings.Contains(msg, "http 5"):
		return true
	case strings.Contains(msg, "reset by peer"):
		return true
	default:
		return false
	}
}
