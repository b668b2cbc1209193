package browser

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of live browser sessions and hands them out one
// caller at a time. Sessions are started lazily: Acquire prefers an idle
// session, starts a new one while under capacity, and otherwise blocks until
// a session is released or the context is done.
type Pool struct {
	capacity int
	idle     chan *Session
	freed    chan struct{}
	stop     chan struct{}
	spawn    func() (*Session, error)
	logger   *slog.Logger

	mu     sync.Mutex
	live   int
	closed bool
}

// NewPool builds a pool backed by the launcher's session factory.
func NewPool(l *Launcher, capacity int, logger *slog.Logger) *Pool {
	return newPool(capacity, l.NewSession, logger)
}

// newPool is the factory-injectable constructor; pool semantics are tested
// against it without a real browser.
func newPool(capacity int, spawn func() (*Session, error), logger *slog.Logger) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		capacity: capacity,
		idle:     make(chan *Session, capacity),
		freed:    make(chan struct{}, capacity),
		stop:     make(chan struct{}),
		spawn:    spawn,
		logger:   logger.With("component", "pool"),
	}
}

// Acquire loans a session to the caller. The caller must Release it on every
// exit path, typically via defer. A session startup failure propagates as a
// *StartupError and leaves no partial session behind.
//
// Waiters blocked at capacity are woken by any capacity change, not only a
// healthy release: a retired session or a failed spawn frees its slot and the
// waiter retries with a fresh spawn.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}

		select {
		case s := <-p.idle:
			p.logger.Debug("session acquired from idle set", "session", s.ID)
			return s, nil
		default:
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if p.live < p.capacity {
			p.live++
			p.mu.Unlock()

			s, err := p.spawn()
			if err != nil {
				p.freeSlot()
				return nil, err
			}

			p.logger.Info("session started", "session", s.ID, "live", p.liveCount())
			return s, nil
		}
		p.mu.Unlock()

		// At capacity: wait for a released session or a freed slot.
		select {
		case s := <-p.idle:
			p.logger.Debug("session acquired after wait", "session", s.ID)
			return s, nil
		case <-p.freed:
			// A slot opened with no session behind it; retry and spawn.
		case <-p.stop:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a session to the idle set. Healthy sessions are kept alive
// for reuse; unhealthy ones are closed and their capacity slot freed so a
// replacement can start.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	if p.isClosed() || !s.Healthy() {
		if err := s.Close(); err != nil {
			p.logger.Warn("failed to close session", "session", s.ID, "error", err)
		}
		p.freeSlot()
		p.logger.Info("session retired", "session", s.ID, "healthy", s.Healthy())
		return
	}

	select {
	case p.idle <- s:
		p.logger.Debug("session released", "session", s.ID)
	default:
		// Idle set full: only possible if Release is called with a foreign
		// session. Close it rather than overcommit.
		s.Close()
		p.logger.Warn("idle set full, closed excess session", "session", s.ID)
	}
}

// Close shuts the pool down. Idle sessions are closed in parallel, blocked
// waiters are woken with ErrPoolClosed, and sessions still on loan are closed
// when their caller releases them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)

	eg := new(errgroup.Group)
	eg.SetLimit(4)

	for {
		select {
		case s := <-p.idle:
			eg.Go(s.Close)
			continue
		default:
		}
		break
	}

	err := eg.Wait()
	p.logger.Info("pool closed")
	return err
}

// freeSlot gives a capacity slot back and wakes one waiter so it can spawn a
// replacement session.
func (p *Pool) freeSlot() {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()

	select {
	case p.freed <- struct{}{}:
	default:
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
