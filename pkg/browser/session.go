package browser

import (
	"fmt"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"

	"github.com/winkey1/fbbot/pkg/telemetry"
)

// session is one live browser bound to a persistent profile.
type session struct {
	id      string
	name    string
	context playwright.BrowserContext
	page    *page
	closed  atomic.Bool
}

// ID returns the registry identifier of this browser.
func (s *session) ID() string {
	return s.id
}

// Name returns the account or session name the browser was opened for.
func (s *session) Name() string {
	return s.name
}

// Page returns the session's page.
func (s *session) Page() Page {
	return s.page
}

// Close shuts the browser down gracefully, flushing profile state to
// disk.
func (s *session) Close() error {
	if err := s.context.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	s.markClosed()
	return nil
}

// Kill force terminates the underlying browser process. It is the
// fallback when Close fails and must not leave the process running.
func (s *session) Kill() error {
	defer s.markClosed()

	browser := s.context.Browser()
	if browser == nil {
		return nil
	}

	telemetry.BrowsersKilled.Inc()
	if err := browser.Close(); err != nil {
		return fmt.Errorf("failed to kill browser: %w", err)
	}
	return nil
}

func (s *session) markClosed() {
	if s.closed.CompareAndSwap(false, true) {
		telemetry.BrowsersInFlight.Dec()
	}
}

// page adapts the driver page to the Page interface workflows use.
type page struct {
	pw playwright.Page
}

// Navigate navigates the page to the specified URL.
func (p *page) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := p.pw.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitFor waits for an element to reach the requested state.
func (p *page) WaitFor(opts WaitOptions) error {
	if opts.Selector == "" {
		return fmt.Errorf("selector is required for wait")
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := p.pw.WaitForSelector(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Click clicks an element matching the selector.
func (p *page) Click(opts ClickOptions) error {
	playwrightOpts := playwright.PageClickOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := p.pw.Click(opts.Selector, playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (p *page) Fill(opts FillOptions) error {
	playwrightOpts := playwright.PageFillOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := p.pw.Fill(opts.Selector, opts.Value, playwrightOpts); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Press sends a single key press to the element.
func (p *page) Press(opts PressOptions) error {
	playwrightOpts := playwright.PagePressOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if err := p.pw.Press(opts.Selector, opts.Key, playwrightOpts); err != nil {
		return fmt.Errorf("press failed: %w", err)
	}
	return nil
}

// Enabled reports whether the matching element is enabled.
func (p *page) Enabled(selector string) (bool, error) {
	enabled, err := p.pw.IsEnabled(selector)
	if err != nil {
		return false, fmt.Errorf("enabled check failed: %w", err)
	}
	return enabled, nil
}

// Upload clicks the trigger element and feeds the file to the chooser
// it opens. The click runs inside the chooser wait so the chooser
// event cannot fire before the listener is attached.
func (p *page) Upload(opts UploadOptions) error {
	expectOpts := playwright.PageExpectFileChooserOptions{}
	clickOpts := playwright.PageClickOptions{}

	if opts.Timeout > 0 {
		expectOpts.Timeout = &opts.Timeout
		clickOpts.Timeout = &opts.Timeout
	}

	chooser, err := p.pw.ExpectFileChooser(func() error {
		return p.pw.Click(opts.TriggerSelector, clickOpts)
	}, expectOpts)
	if err != nil {
		return fmt.Errorf("file chooser did not open: %w", err)
	}

	if err := chooser.SetFiles(opts.FilePath); err != nil {
		return fmt.Errorf("failed to set chooser file: %w", err)
	}
	return nil
}

// Reload reloads the current page.
func (p *page) Reload(opts NavigateOptions) error {
	playwrightOpts := playwright.PageReloadOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := p.pw.Reload(playwrightOpts); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Content returns the full HTML of the current page.
func (p *page) Content() (string, error) {
	content, err := p.pw.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

// URL returns the current page URL.
func (p *page) URL() string {
	return p.pw.URL()
}

// Pause blocks for the given number of milliseconds.
func (p *page) Pause(ms float64) {
	p.pw.WaitForTimeout(ms)
}
