package workflows

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/config"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/profiles"
)

func newTestJob(t *testing.T) *jobs.Job {
	t.Helper()
	registry := jobs.NewRegistry()
	job := registry.Create()
	t.Cleanup(func() { registry.Dispose(job) })
	return job
}

// fakePage is a scriptable browser.Page. Visibility is toggled by
// tests directly or from hooks to simulate page transitions; waits
// return immediately so tests never sleep.
type fakePage struct {
	mu      sync.Mutex
	visible map[string]bool
	enabled map[string]bool
	html    string
	url     string

	navigateErr map[string]error
	clickErr    map[string]error
	fillErr     map[string]error
	pressErr    map[string]error
	uploadErr   error
	contentErr  error

	navigations []string
	reloads     int
	clicks      []string
	fills       []string
	presses     []string
	uploads     []string
	waits       []string
	pauses      []float64

	onNavigate func(url string)
	onClick    func(selector string)
	onReload   func()
}

func newFakePage() *fakePage {
	return &fakePage{
		visible:     make(map[string]bool),
		enabled:     make(map[string]bool),
		navigateErr: make(map[string]error),
		clickErr:    make(map[string]error),
		fillErr:     make(map[string]error),
		pressErr:    make(map[string]error),
	}
}

func (p *fakePage) setVisible(selector string, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[selector] = v
}

func (p *fakePage) Navigate(url string, opts browser.NavigateOptions) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.url = url
	err := p.navigateErr[url]
	hook := p.onNavigate
	p.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return err
}

func (p *fakePage) WaitFor(opts browser.WaitOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, opts.Selector)

	if opts.State == "detached" {
		if !p.visible[opts.Selector] {
			return nil
		}
		return fmt.Errorf("wait failed: %s still attached", opts.Selector)
	}

	// A union selector list matches if any member is visible
	if p.visible[opts.Selector] {
		return nil
	}
	for sel, vis := range p.visible {
		if vis && containsSelector(opts.Selector, sel) {
			return nil
		}
	}
	return fmt.Errorf("wait failed: %s not visible", opts.Selector)
}

// containsSelector reports whether union (a comma-joined selector
// list) includes sel as one of its members.
func containsSelector(union, sel string) bool {
	start := 0
	for i := 0; i <= len(union); i++ {
		if i == len(union) || union[i] == ',' {
			part := union[start:i]
			for len(part) > 0 && part[0] == ' ' {
				part = part[1:]
			}
			if part == sel {
				return true
			}
			start = i + 1
		}
	}
	return false
}

func (p *fakePage) Click(opts browser.ClickOptions) error {
	p.mu.Lock()
	p.clicks = append(p.clicks, opts.Selector)
	err := p.clickErr[opts.Selector]
	hook := p.onClick
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(opts.Selector)
	}
	return nil
}

func (p *fakePage) Fill(opts browser.FillOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fills = append(p.fills, opts.Selector+"="+opts.Value)
	return p.fillErr[opts.Selector]
}

func (p *fakePage) Press(opts browser.PressOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presses = append(p.presses, opts.Selector+":"+opts.Key)
	return p.pressErr[opts.Selector]
}

func (p *fakePage) Enabled(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.enabled[selector]; ok {
		return v, nil
	}
	return true, nil
}

func (p *fakePage) Upload(opts browser.UploadOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, opts.FilePath)
	return p.uploadErr
}

func (p *fakePage) Reload(opts browser.NavigateOptions) error {
	p.mu.Lock()
	p.reloads++
	hook := p.onReload
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (p *fakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, p.contentErr
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Pause(ms float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses = append(p.pauses, ms)
}

// fakeWorkflowHandle pairs a fake page with close tracking.
type fakeWorkflowHandle struct {
	id   string
	name string
	page *fakePage

	mu       sync.Mutex
	closed   bool
	killed   bool
	closeErr error
}

func (h *fakeWorkflowHandle) ID() string         { return h.id }
func (h *fakeWorkflowHandle) Name() string       { return h.name }
func (h *fakeWorkflowHandle) Page() browser.Page { return h.page }

func (h *fakeWorkflowHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		return h.closeErr
	}
	h.closed = true
	return nil
}

func (h *fakeWorkflowHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed = true
	return nil
}

func (h *fakeWorkflowHandle) wasReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed || h.killed
}

// fakeLauncher hands out fake handles and records launches.
type fakeLauncher struct {
	mu        sync.Mutex
	launchErr error
	pages     map[string]*fakePage // name → page to hand out
	handles   []*fakeWorkflowHandle
	launches  []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{pages: make(map[string]*fakePage)}
}

func (l *fakeLauncher) Launch(name, profileDir string, opts browser.SessionOptions) (browser.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches = append(l.launches, name)
	if l.launchErr != nil {
		return nil, l.launchErr
	}

	page := l.pages[name]
	if page == nil {
		page = newFakePage()
		l.pages[name] = page
	}

	handle := &fakeWorkflowHandle{
		id:   fmt.Sprintf("handle-%d", len(l.handles)+1),
		name: name,
		page: page,
	}
	l.handles = append(l.handles, handle)
	return handle, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.launches)
}

// newTestEngine wires an engine with fast timeouts, a temp profile
// root, and a fake launcher.
func newTestEngine(t *testing.T) (*Engine, *fakeLauncher, *profiles.Directory) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Profiles.Root = t.TempDir()
	cfg.Workflow.NavigationTimeoutMs = 50
	cfg.Workflow.LoginFormTimeoutMs = 50
	cfg.Workflow.AuthMarkerTimeoutMs = 50
	cfg.Workflow.PostLoginTimeoutMs = 50
	cfg.Workflow.ProbeTimeoutMs = 50
	cfg.Workflow.ActionTimeoutMs = 50
	cfg.Workflow.UploadTimeoutMs = 50
	cfg.Workflow.SettleDelayMs = 1
	cfg.Workflow.RetryPauseMs = 1

	launcher := newFakeLauncher()
	dir := profiles.NewDirectory(cfg.Profiles.Root)

	engine, err := NewEngine(cfg, launcher, dir)
	require.NoError(t, err)
	return engine, launcher, dir
}

// makeProfile creates the on-disk profile directory for a session so
// the preflight existence check passes.
func makeProfile(t *testing.T, dir *profiles.Directory, tenantID, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir.ResolvePath(tenantID, name), 0750))
}
