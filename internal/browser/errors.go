package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned by Acquire after the pool has been shut down.
	ErrPoolClosed = errors.New("browser pool closed")

	// ErrBlocked marks a navigation that landed on a challenge, CAPTCHA or
	// throttling page instead of the requested content.
	ErrBlocked = errors.New("blocked by anti-bot protection")
)

// StartupError wraps a failure to launch the browser runtime or to open a new
// session. It is fatal and never retried.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("browser startup failed: %v", e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// NavigationError is returned once the navigator has exhausted its attempt
// budget for one URL. Err holds the last underlying failure.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
