package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Launcher owns the single Playwright runtime and Chromium process that all
// pooled sessions share. Each Session gets its own browser context, so cookies
// and fingerprint stay scoped to one logical visitor.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgents     []string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

func NewLauncher(opts *Options) (*Launcher, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("failed to start playwright: %w", err)}
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args:     launchArgs(pickUserAgent(opts.UserAgents)),
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, &StartupError{Err: fmt.Errorf("failed to launch browser: %w", err)}
	}

	return &Launcher{
		pw:      pw,
		browser: browser,
		opts:    opts,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// NewSession opens a fresh browser context with its own cookies, a user agent
// drawn from the configured pool, a jittered viewport and the stealth init
// script already applied.
func (l *Launcher) NewSession() (*Session, error) {
	userAgent := pickUserAgent(l.opts.UserAgents)

	headers := make(map[string]string, len(l.opts.ExtraHeaders)+1)
	for k, v := range l.opts.ExtraHeaders {
		headers[k] = v
	}
	if l.opts.AcceptLanguage != "" {
		headers["Accept-Language"] = l.opts.AcceptLanguage
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &userAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &l.opts.Locale,
		TimezoneId:        &l.opts.TimezoneID,
		Viewport:          randomViewport(l.opts.ViewportWidth, l.opts.ViewportHeight),
		ExtraHttpHeaders:  headers,
	}

	context, err := l.browser.NewContext(contextOpts)
	if err != nil {
		return nil, &StartupError{Err: fmt.Errorf("failed to create browser context: %w", err)}
	}

	s := &Session{
		ID:        uuid.NewString(),
		context:   context,
		userAgent: userAgent,
		timeout:   l.opts.Timeout,
		healthy:   true,
	}

	if err := s.applyStealth(); err != nil {
		context.Close()
		return nil, &StartupError{Err: fmt.Errorf("failed to apply stealth configuration: %w", err)}
	}

	l.logger.Debug("session created", "session", s.ID, "user_agent", userAgent)
	return s, nil
}

func (l *Launcher) Close() error {
	var errs []error

	if l.browser != nil {
		if err := l.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
