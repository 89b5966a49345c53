// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package contentsearch wraps the external content-search collaborator with
// the resilience the pipeline requires: a paced request rate, an explicit
// retry policy and a circuit breaker. Failures never propagate beyond one
// content key; the caller treats them as "no additional events found".
package contentsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ampwatch/ampwatch/internal/coordination"
	"github.com/ampwatch/ampwatch/internal/logging"
)

// ErrPermanent wraps errors that must not be retried. Inner searchers
// return it (via fmt.Errorf with %w) for conditions like malformed queries
// where repeating the call cannot help.
var ErrPermanent = errors.New("contentsearch: permanent failure")

// RetryPolicy controls how failed lookups are repeated.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; each subsequent
	// retry multiplies the delay by Multiplier up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// Retryable decides whether an error is worth retrying. When nil,
	// everything except ErrPermanent and context errors is retried.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the production retry defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// retryable applies the policy's predicate with its defaults.
func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}

// Config configures the resilient client.
type Config struct {
	// PacingInterval is the minimum spacing between lookup calls across all
	// workers. Implemented as a token bucket; the reference fixed-delay
	// behavior corresponds to Burst=1.
	PacingInterval time.Duration
	Burst          int

	// Retry is the retry policy applied per lookup.
	Retry RetryPolicy

	// BreakerName identifies the circuit breaker instance.
	BreakerName string

	// FailureThreshold is the number of consecutive failures before the
	// breaker opens; BreakerTimeout is the open-state duration before a
	// half-open probe.
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PacingInterval:   time.Second,
		Burst:            1,
		Retry:            DefaultRetryPolicy(),
		BreakerName:      "content-search",
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// Client decorates an inner searcher with pacing, retries and a circuit
// breaker. It implements coordination.Searcher.
type Client struct {
	inner   coordination.Searcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]coordination.Event]
	policy  RetryPolicy
}

// NewClient wraps inner with the configured resilience layers.
func NewClient(inner coordination.Searcher, cfg Config) *Client {
	if cfg.PacingInterval <= 0 {
		cfg.PacingInterval = DefaultConfig().PacingInterval
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultConfig().BreakerTimeout
	}

	settings := gobreaker.Settings{
		Name:    cfg.BreakerName,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("content-search circuit breaker state change")
		},
	}

	return &Client{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(cfg.PacingInterval), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]coordination.Event](settings),
		policy:  cfg.Retry,
	}
}

// Search performs a paced, retried, circuit-broken lookup for one content
// key. When the breaker is open the call fails fast without consuming the
// retry budget.
func (c *Client) Search(ctx context.Context, contentKey string) ([]coordination.Event, error) {
	backoff := c.policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}

		events, err := c.breaker.Execute(func() ([]coordination.Event, error) {
			return c.inner.Search(ctx, contentKey)
		})
		if err == nil {
			return events, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("content search unavailable: %w", err)
		}
		if !c.policy.retryable(err) {
			return nil, err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}

		logging.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("content-search lookup failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.policy.Multiplier)
		if c.policy.MaxBackoff > 0 && backoff > c.policy.MaxBackoff {
			backoff = c.policy.MaxBackoff
		}
	}

	return nil, fmt.Errorf("content search failed after %d attempts: %w", c.policy.MaxAttempts, lastErr)
}
