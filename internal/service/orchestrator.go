// Package service contains the request orchestrator: it turns a single
// user-initiated generation into a bounded-retry asynchronous operation with
// cancellation and last-submit-wins supersession.
package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Sharan9277/ai-studio/internal/domain"
)

// Options tunes the orchestrator's retry policy. Zero values fall back to
// the defaults below.
type Options struct {
	// MaxAttempts is the total number of backend calls per submission. Default 3.
	MaxAttempts int
	// AttemptTimeout bounds each backend call. Default 30s.
	AttemptTimeout time.Duration
	// BackoffBase is the delay before the second attempt; it doubles per
	// attempt and is randomized by ±25%. Default 1s.
	BackoffBase time.Duration
	// BackoffMin floors the backoff delay. Default 100ms.
	BackoffMin time.Duration
	// BackoffCap caps the backoff delay. Default 10s.
	BackoffCap time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 30 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 100 * time.Millisecond
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 10 * time.Second
	}
	return o
}

// Orchestrator owns one logical generation slot. Submitting a new request
// supersedes any outstanding one: the older submission resolves
// domain.ErrCancelled even if its backend call would have succeeded.
// Construct one per slot; there is no package-level instance.
type Orchestrator struct {
	backend domain.GenerationBackend
	opts    Options

	mu       sync.Mutex
	epoch    uint64
	cancel   context.CancelFunc
	inflight int
	rng      *rand.Rand
}

// New creates an orchestrator over the given backend.
func New(backend domain.GenerationBackend, opts Options) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		opts:    opts.withDefaults(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit runs one generation to completion. It validates the request,
// retries timeouts and transient failures with exponential backoff and
// jitter, and resolves with one of: the result, domain.ErrCancelled,
// domain.ErrTimedOut, a *domain.ExhaustedError, or the first non-retryable
// error. Only the most recent submission may return a result.
func (o *Orchestrator) Submit(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.epoch++
	epoch := o.epoch
	if o.cancel != nil {
		// Supersede the outstanding submission.
		o.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.inflight++
	o.mu.Unlock()

	result, err := o.run(runCtx, epoch, req)

	o.mu.Lock()
	o.inflight--
	if o.epoch == epoch {
		o.cancel = nil
	}
	o.mu.Unlock()
	cancel()

	return result, err
}

// Cancel aborts the in-flight submission, if any, including a pending
// backoff wait. The awaiting caller observes domain.ErrCancelled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// IsActive reports whether an unresolved submission is outstanding.
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight > 0
}

func (o *Orchestrator) run(ctx context.Context, epoch uint64, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, domain.ErrCancelled
		}

		result, err := o.attempt(ctx, req)
		if err == nil {
			// Commit only if this is still the current submission.
			o.mu.Lock()
			current := o.epoch == epoch
			o.mu.Unlock()
			if !current || ctx.Err() != nil {
				return nil, domain.ErrCancelled
			}
			return result, nil
		}
		if errors.Is(err, domain.ErrCancelled) {
			return nil, domain.ErrCancelled
		}
		if !domain.Retryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt < o.opts.MaxAttempts {
			timer := time.NewTimer(o.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, domain.ErrCancelled
			case <-timer.C:
			}
		}
	}

	if errors.Is(lastErr, domain.ErrTimedOut) {
		return nil, domain.ErrTimedOut
	}
	return nil, &domain.ExhaustedError{Attempts: o.opts.MaxAttempts, Last: lastErr}
}

// attempt runs one backend call under the per-attempt timeout and
// classifies the outcome.
func (o *Orchestrator) attempt(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.opts.AttemptTimeout)
	defer cancel()

	result, err := o.backend.Generate(attemptCtx, req)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, domain.ErrCancelled
	}
	if attemptCtx.Err() == context.DeadlineExceeded {
		return nil, domain.ErrTimedOut
	}
	return nil, err
}

// backoff computes the wait before the next attempt:
// clamp(2^(attempt-1)*base ± 25%, min, cap).
func (o *Orchestrator) backoff(attempt int) time.Duration {
	base := o.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		base *= 2
		if base >= o.opts.BackoffCap {
			base = o.opts.BackoffCap
			break
		}
	}

	o.mu.Lock()
	jitter := time.Duration((o.rng.Float64()*0.5 - 0.25) * float64(base))
	o.mu.Unlock()

	d := base + jitter
	if d < o.opts.BackoffMin {
		d = o.opts.BackoffMin
	}
	if d > o.opts.BackoffCap {
		d = o.opts.BackoffCap
	}
	return d
}
