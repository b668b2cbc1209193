package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/nvoss/amazon-shoptools/internal/ratelimit"
)

// RenderedPage is the content snapshot Visit hands to extraction. The page
// handle itself is closed before returning, so callers never touch live
// browser state.
type RenderedPage struct {
	URL  string
	HTML string
}

type NavigatorOptions struct {
	MaxAttempts int
	Timeout     time.Duration
	DelayMin    time.Duration
	DelayMax    time.Duration
}

// Navigator performs stealth page visits: a randomized pre-navigation delay,
// a bounded navigation attempt, block detection, and retry with a re-rolled
// delay until the attempt cap is reached.
type Navigator struct {
	opts   NavigatorOptions
	pacer  *ratelimit.AdaptivePacer
	logger *slog.Logger

	// render is swapped out in tests; the default drives playwright.
	render func(s *Session, url string, timeout time.Duration) (string, error)
}

func NewNavigator(opts NavigatorOptions, logger *slog.Logger) *Navigator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Navigator{
		opts:   opts,
		pacer:  ratelimit.NewAdaptivePacer(opts.DelayMin, opts.DelayMax),
		logger: logger.With("component", "navigator"),
		render: renderPage,
	}
}

// navState models the retry loop explicitly. Transitions:
// idle -> attempting; attempting -> succeeded | backoff | failed;
// backoff -> attempting once the re-rolled delay has elapsed.
type navState int

const (
	stateIdle navState = iota
	stateAttempting
	stateBackoff
	stateSucceeded
	stateFailed
)

// Visit navigates the session to url and returns the rendered document.
// The pre-navigation delay and the navigation itself are the cancellation
// points; ctx cancellation aborts the visit between attempts. Exhausting the
// attempt cap returns a *NavigationError, never an indefinite hang.
func (n *Navigator) Visit(ctx context.Context, s *Session, url string) (*RenderedPage, error) {
	var (
		state    = stateIdle
		attempts int
		lastErr  error
		html     string
	)

	for {
		switch state {
		case stateIdle, stateBackoff:
			// Human-pacing delay, re-rolled on every attempt.
			if err := n.pacer.Wait(ctx); err != nil {
				return nil, err
			}
			state = stateAttempting

		case stateAttempting:
			attempts++
			n.logger.Debug("navigating", "url", url, "attempt", attempts, "session", s.ID)

			content, err := n.render(s, url, n.opts.Timeout)
			if err == nil && looksBlocked(content) {
				err = ErrBlocked
			}

			if err != nil {
				lastErr = err
				n.pacer.RecordError()
				n.logger.Warn("navigation attempt failed",
					"url", url, "attempt", attempts, "error", err)

				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if attempts >= n.opts.MaxAttempts {
					state = stateFailed
				} else {
					state = stateBackoff
				}
				continue
			}

			html = content
			n.pacer.RecordSuccess()
			state = stateSucceeded

		case stateSucceeded:
			n.logger.Info("page rendered", "url", url, "attempts", attempts)
			return &RenderedPage{URL: url, HTML: html}, nil

		case stateFailed:
			return nil, &NavigationError{URL: url, Attempts: attempts, Err: lastErr}
		}
	}
}

// renderPage is the production render hook: one page per navigation, content
// captured, page closed.
func renderPage(s *Session, url string, timeout time.Duration) (string, error) {
	page, err := s.NewPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("goto failed: %w", err)
	}

	if resp != nil && (resp.Status() == 503 || resp.Status() == 429) {
		return "", ErrBlocked
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	return content, nil
}

// blockMarkers identify CAPTCHA and interstitial challenge pages.
var blockMarkers = []string{
	"/errors/validateCaptcha",
	"captchacharacters",
	"Enter the characters you see below",
	"Klicke auf die Schaltfl", // German interstitial, seen on amazon.de
	"Weiter shoppen",
}

func looksBlocked(html string) bool {
	for _, marker := range blockMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
