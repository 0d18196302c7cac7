package workflows

import (
	"errors"
	"fmt"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/config"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/logging"
	"github.com/winkey1/fbbot/pkg/profiles"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("workflows")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize workflows logger, using stderr fallback: %v", err)
	}
}

// errCancelled short-circuits a workflow when its job's cancellation
// flag is observed. It is never surfaced as a failure message.
var errCancelled = errors.New("cancelled")

// Engine executes workflows. One engine serves all jobs; all per-item
// state lives on the worker's stack.
type Engine struct {
	cfg      *config.Config
	launcher browser.Launcher
	profiles *profiles.Directory
	policy   *LinkPolicy
}

// NewEngine creates an engine from the service configuration.
func NewEngine(cfg *config.Config, launcher browser.Launcher, dir *profiles.Directory) (*Engine, error) {
	policy, err := NewLinkPolicy(cfg.Target.AllowedLinkPatterns, cfg.Target.DeniedLinkPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile link policy: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		launcher: launcher,
		profiles: dir,
		policy:   policy,
	}, nil
}

// sessionOptions maps the browser section of the configuration onto
// launch options.
func (e *Engine) sessionOptions() browser.SessionOptions {
	return browser.SessionOptions{
		Headless: e.cfg.Browser.Headless,
		Viewport: &browser.Viewport{
			Width:  e.cfg.Browser.ViewportWidth,
			Height: e.cfg.Browser.ViewportHeight,
		},
		SlowMo:         float64(e.cfg.Browser.SlowMoMs),
		Args:           e.cfg.Browser.Args,
		LaunchTimeout:  float64(e.cfg.Browser.LaunchTimeoutMs),
		DefaultTimeout: float64(e.cfg.Workflow.ActionTimeoutMs),
	}
}

// openBrowser launches a browser for one work item, registers it with
// the job, and returns a release func that closes and unregisters it.
// The release func must run on every exit path of the caller.
func (e *Engine) openBrowser(job *jobs.Job, name, profileDir string) (browser.Handle, func(), error) {
	handle, err := e.launcher.Launch(name, profileDir, e.sessionOptions())
	if err != nil {
		return nil, nil, err
	}

	job.RegisterBrowser(handle)
	release := func() {
		jobs.CloseOrKill(handle)
		job.UnregisterBrowser(handle)
	}
	return handle, release, nil
}
