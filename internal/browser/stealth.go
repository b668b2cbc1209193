package browser

import (
	"math/rand"

	"github.com/playwright-community/playwright-go"
)

// stealthScript masks the markers headless Chromium leaks into page
// JavaScript. Injected before any page script runs; reapplying it is a no-op
// because every property is simply redefined to the same shape.
const stealthScript = `
(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  Object.defineProperty(navigator, 'plugins', {
    get: () => [1, 2, 3, 4, 5].map(() => ({ name: 'Chromium PDF Plugin' })),
  });
  window.chrome = window.chrome || { runtime: {} };
  const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
  window.navigator.permissions.query = (parameters) =>
    parameters.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : origQuery(parameters);
})();
`

// launchArgs are the Chromium flags that suppress the automation fingerprint
// at the process level.
func launchArgs(userAgent string) []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--window-size=1920,1080",
		"--user-agent=" + userAgent,
	}
}

// randomViewport returns a plausible desktop viewport near the configured
// size. A small per-session jitter keeps pooled sessions from sharing one
// exact fingerprint.
func randomViewport(width, height int) *playwright.Size {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	return &playwright.Size{
		Width:  width - rand.Intn(240),
		Height: height - rand.Intn(160),
	}
}

func pickUserAgent(agents []string) string {
	if len(agents) == 0 {
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return agents[rand.Intn(len(agents))]
}
