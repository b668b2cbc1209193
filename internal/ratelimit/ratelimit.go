package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces successive navigations with a randomized delay. A fixed delay
// would present a detectable timing signature, so every wait re-rolls the
// duration inside [min,max].
type Pacer struct {
	mu         sync.Mutex
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
}

func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks until the re-rolled delay since the last action has elapsed, or
// the context is done. It is a designated cancellation point.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	delay := p.roll()
	elapsed := time.Since(p.lastAction)
	p.mu.Unlock()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	p.mu.Lock()
	p.lastAction = time.Now()
	p.mu.Unlock()
	return nil
}

// Delay returns the currently configured range.
func (p *Pacer) Delay() (min, max time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.minDelay, p.maxDelay
}

func (p *Pacer) SetDelay(min, max time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minDelay = min
	p.maxDelay = max
}

// roll picks a duration inside [min,max]. Callers must hold mu.
func (p *Pacer) roll() time.Duration {
	if p.maxDelay <= p.minDelay {
		return p.minDelay
	}
	return p.minDelay + time.Duration(rand.Int63n(int64(p.maxDelay-p.minDelay)))
}

// AdaptivePacer stretches the delay range when navigations keep failing and
// relaxes it back toward the base range after a run of successes. This keeps
// pacing polite under rate-limiting without slowing healthy runs permanently.
type AdaptivePacer struct {
	*Pacer

	baseMin, baseMax time.Duration
	errorCount       int
	successCount     int
	maxErrorCount    int
	backoffFactor    float64
}

func NewAdaptivePacer(minDelay, maxDelay time.Duration) *AdaptivePacer {
	return &AdaptivePacer{
		Pacer:         NewPacer(minDelay, maxDelay),
		baseMin:       minDelay,
		baseMax:       maxDelay,
		maxErrorCount: 3,
		backoffFactor: 1.5,
	}
}

func (a *AdaptivePacer) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		a.successCount = 0
		a.minDelay = maxDuration(a.baseMin, time.Duration(float64(a.minDelay)*0.9))
		a.maxDelay = maxDuration(a.baseMax, time.Duration(float64(a.maxDelay)*0.9))
	}
}

func (a *AdaptivePacer) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		a.errorCount = 0
		a.minDelay = minDuration(60*time.Second, time.Duration(float64(a.minDelay)*a.backoffFactor))
		a.maxDelay = minDuration(120*time.Second, time.Duration(float64(a.maxDelay)*a.backoffFactor))
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
