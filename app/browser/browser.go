// Package browser manages playwright sessions for page captures. Each capture
// runs in its own incognito-like browser context so captures can't leak state
// into each other, same isolation the e2e suite uses.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

// Options holds playwright launch parameters
type Options struct {
	Headless bool
	SlowMo   float64       // milliseconds added to each operation, useful with Headless=false
	Timeout  time.Duration // default timeout for page operations
	Install  bool          // install chromium before launching
}

// Session wraps a running playwright instance with a launched chromium
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

// Capture describes a single page to screenshot
type Capture struct {
	Path     string // url path relative to the target base url
	WaitFor  string // selector confirming the page rendered, body if empty
	FullPage bool
}

// CaptureResult reports what happened during a capture
type CaptureResult struct {
	Status        int
	Elapsed       time.Duration
	ConsoleErrors []string
}

// NewSession starts playwright and launches chromium
func NewSession(opts Options) (*Session, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}

	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(opts.SlowMo),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	log.Printf("[DEBUG] browser session started, headless=%v", opts.Headless)
	return &Session{pw: pw, browser: browser, opts: opts}, nil
}

// Capture loads baseURL+c.Path in a fresh context, waits for the page to
// render and writes a screenshot to outFile. Console errors emitted while the
// page loads are collected into the result.
func (s *Session) Capture(ctx context.Context, baseURL string, c Capture, outFile string) (CaptureResult, error) {
	st := time.Now()
	res := CaptureResult{}

	bctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		return res, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer func() { _ = bctx.Close() }()

	page, err := bctx.NewPage()
	if err != nil {
		return res, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	var mu sync.Mutex
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		if msg.Type() == "error" {
			mu.Lock()
			res.ConsoleErrors = append(res.ConsoleErrors, msg.Text())
			mu.Unlock()
		}
	})

	url := strings.TrimSuffix(baseURL, "/") + c.Path
	resp, err := page.Goto(url)
	if err != nil {
		return res, fmt.Errorf("failed to load %s: %w", url, err)
	}
	if resp != nil {
		res.Status = resp.Status()
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	waitFor := c.WaitFor
	if waitFor == "" {
		waitFor = "body"
	}
	if err := page.Locator(waitFor).First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return res, fmt.Errorf("page %s did not render %q: %w", url, waitFor, err)
	}

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(outFile),
		FullPage: playwright.Bool(c.FullPage),
	}); err != nil {
		return res, fmt.Errorf("failed to screenshot %s: %w", url, err)
	}

	res.Elapsed = time.Since(st)
	log.Printf("[DEBUG] captured %s to %s in %v", url, outFile, res.Elapsed)
	return res, nil
}

// Close shuts down the browser and playwright
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Printf("[WARN] failed to close browser: %v", err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			log.Printf("[WARN] failed to stop playwright: %v", err)
		}
	}
}
