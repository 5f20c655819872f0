package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCooldown is how long a Chain skips a provider after it fails.
const DefaultCooldown = 30 * time.Second

// Chain speaks through the first provider that answers. A provider that
// fails is skipped for Cooldown so that a dead primary does not delay every
// line; when every provider is cooling down all of them are tried anyway.
type Chain struct {
	// Cooldown of zero disables skipping.
	Cooldown time.Duration

	providers []Provider
	mu        sync.Mutex
	until     []time.Time
	logger    *slog.Logger
}

// NewChain creates a chain that tries providers in order.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		Cooldown:  DefaultCooldown,
		providers: providers,
		until:     make([]time.Time, len(providers)),
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Synthesize returns the first successful result.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error
	for _, i := range c.order(time.Now()) {
		result, err := c.providers[i].Synthesize(ctx, text)
		if err == nil {
			c.settle(i, time.Time{})
			if len(errs) > 0 {
				c.logger.Info("fell back to provider", "provider", result.Provider, "failed", len(errs))
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
		c.settle(i, time.Now().Add(c.Cooldown))
		c.logger.Warn("provider failed", "index", i, "error", err)
	}
	return nil, &ChainError{Errors: errs}
}

// order lists provider indexes to try: those not cooling down, or all of
// them when none are available.
func (c *Chain) order(now time.Time) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ready := make([]int, 0, len(c.providers))
	for i, t := range c.until {
		if !now.Before(t) {
			ready = append(ready, i)
		}
	}
	if len(ready) > 0 {
		return ready
	}
	for i := range c.providers {
		ready = append(ready, i)
	}
	return ready
}

func (c *Chain) settle(i int, until time.Time) {
	if c.Cooldown <= 0 {
		return
	}
	c.mu.Lock()
	c.until[i] = until
	c.mu.Unlock()
}

// Health returns nil when at least one provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts: every provider unhealthy: %w", errors.Join(errs...))
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Len returns the number of providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// ChainError holds one error per provider tried, in order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tts: %d providers failed: %v", len(e.Errors), errors.Join(e.Errors...))
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}

var _ Provider = (*Chain)(nil)
