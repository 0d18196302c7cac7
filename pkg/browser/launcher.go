package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/winkey1/fbbot/pkg/telemetry"
)

// PlaywrightLauncher launches Chromium browsers bound to persistent
// profile directories. One launcher is shared by the whole process;
// each Launch call produces an independent browser.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
}

// NewPlaywrightLauncher creates a launcher. Start must be called
// before the first Launch.
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

// Start installs the driver if needed and starts it. Calling Start on
// a started launcher is a no-op, and a launcher can be started again
// after Stop.
func (l *PlaywrightLauncher) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	// Install and run with verbose=false and discarded output so the
	// driver does not write to the service's stdio
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch opens a browser whose state (cookies, local storage) lives in
// profileDir. The directory is created by the browser on first use,
// which is what makes relaunching against it resume the old session.
func (l *PlaywrightLauncher) Launch(name, profileDir string, opts SessionOptions) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, fmt.Errorf("launcher not started")
	}

	// Set defaults
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.LaunchTimeout == 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = DefaultTimeout
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		Timeout: playwright.Float(opts.LaunchTimeout),
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(opts.SlowMo)
	}
	if len(opts.Args) > 0 {
		launchOpts.Args = opts.Args
	}

	context, err := l.playwright.Chromium.LaunchPersistentContext(profileDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// A persistent context usually opens with an initial page
	var pg playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		pg = pages[0]
	} else {
		pg, err = context.NewPage()
		if err != nil {
			context.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	pg.SetDefaultTimeout(opts.DefaultTimeout)

	telemetry.BrowsersLaunched.Inc()
	telemetry.BrowsersInFlight.Inc()

	return &session{
		id:      uuid.New().String(),
		name:    name,
		context: context,
		page:    &page{pw: pg},
	}, nil
}

// Stop stops the driver. Browsers still open become unusable, so the
// caller is expected to have closed them first.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized || l.playwright == nil {
		return nil
	}

	if err := l.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}

	l.playwright = nil
	l.initialized = false
	return nil
}
