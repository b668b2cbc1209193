package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one pooled browser context. While idle it belongs to the Pool;
// while loaned it belongs to exactly one caller. A session flagged unhealthy
// is closed instead of re-entering the idle set.
type Session struct {
	ID        string
	context   playwright.BrowserContext
	userAgent string
	timeout   time.Duration

	mu       sync.Mutex
	healthy  bool
	stealthy bool
}

func (s *Session) UserAgent() string { return s.userAgent }

// NewPage opens a page in this session's context with the session default
// timeout applied.
func (s *Session) NewPage() (playwright.Page, error) {
	if s.context == nil {
		return nil, fmt.Errorf("session %s has no browser context", s.ID)
	}

	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if s.timeout > 0 {
		page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))
	}

	return page, nil
}

// applyStealth installs the fingerprint-masking init script. Idempotent: the
// script itself only redefines properties, so running it again is harmless.
func (s *Session) applyStealth() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stealthy || s.context == nil {
		return nil
	}

	if err := s.context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		return err
	}

	s.stealthy = true
	return nil
}

// MarkUnhealthy flags the session so the pool retires it on release instead
// of lending it out again.
func (s *Session) MarkUnhealthy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = false
}

func (s *Session) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

func (s *Session) Close() error {
	if s.context == nil {
		return nil
	}
	if err := s.context.Close(); err != nil {
		return fmt.Errorf("failed to close session %s: %w", s.ID, err)
	}
	return nil
}
