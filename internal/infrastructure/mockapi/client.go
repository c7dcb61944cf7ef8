// Package mockapi simulates the studio's generation backend: a randomized
// delay followed by either an "overloaded" failure or a placeholder result.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sharan9277/ai-studio/internal/domain"
)

const placeholderURLFormat = "https://picsum.photos/seed/%s/512/512"

// ErrOverloaded is the simulated transient backend failure.
var ErrOverloaded = errors.New("generation service overloaded")

// Client implements domain.GenerationBackend with simulated latency and a
// configurable transient failure rate.
type Client struct {
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Client.
type Option func(*Client)

// WithFailureRate sets the probability in [0,1] that a call fails with a
// transient overloaded error. Default 0.2.
func WithFailureRate(rate float64) Option {
	return func(c *Client) { c.failureRate = rate }
}

// WithDelayRange sets the simulated latency bounds. Default 1s–2s.
func WithDelayRange(min, max time.Duration) Option {
	return func(c *Client) {
		c.minDelay = min
		c.maxDelay = max
	}
}

// WithSeed fixes the random source, for reproducible runs.
func WithSeed(seed int64) Option {
	return func(c *Client) { c.rng = rand.New(rand.NewSource(seed)) }
}

// NewClient creates a mock backend client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		failureRate: 0.2,
		minDelay:    time.Second,
		maxDelay:    2 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate simulates one generation call. It sleeps a randomized delay
// honoring ctx, then fails with a transient error at the configured rate or
// returns a result echoing the request's prompt and style.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	delay, failed := c.roll()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if failed {
		return nil, &domain.TransientError{Cause: ErrOverloaded}
	}

	id := uuid.New().String()
	return &domain.GenerationResult{
		ID:        id,
		ImageURL:  fmt.Sprintf(placeholderURLFormat, id),
		Prompt:    req.Prompt,
		Style:     req.Style,
		CreatedAt: time.Now(),
	}, nil
}

// roll draws the delay and failure outcome for one call under the lock, so
// concurrent calls do not race on the random source.
func (c *Client) roll() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delay := c.minDelay
	if spread := c.maxDelay - c.minDelay; spread > 0 {
		delay += time.Duration(c.rng.Int63n(int64(spread)))
	}
	failed := c.rng.Float64() < c.failureRate
	return delay, failed
}
