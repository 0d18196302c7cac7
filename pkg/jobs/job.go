// Package jobs tracks in-flight orchestration jobs, the browsers they
// own, and runs the bounded worker pool that drives them. Cancellation
// is cooperative: workers poll their job's flag at safe points and a
// step in progress always finishes or times out first.
package jobs

import (
	"sync"
	"sync/atomic"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("jobs")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize jobs logger, using stderr fallback: %v", err)
	}
}

// Job is one in-flight orchestration call. It owns a set of live
// browsers keyed by handle id and a monotonic cancellation flag.
// A browser belongs to at most one job at a time and is unregistered
// the moment it is closed.
type Job struct {
	id        string
	mu        sync.Mutex
	browsers  map[string]browser.Handle
	cancelled atomic.Bool
}

// ID returns the job's registry identifier.
func (j *Job) ID() string {
	return j.id
}

// Cancel sets the cancellation flag. The transition is one-way.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled reports whether cancellation has been requested. Workers
// poll this before opening a browser, before each significant UI step,
// and before claiming the next item.
func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// RegisterBrowser adds a live browser to the job's owned set. Safe to
// call concurrently from multiple workers of the same job.
func (j *Job) RegisterBrowser(h browser.Handle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.browsers[h.ID()] = h
}

// UnregisterBrowser removes a browser from the job's owned set. Called
// the instant the browser is closed.
func (j *Job) UnregisterBrowser(h browser.Handle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.browsers, h.ID())
}

// BrowserCount returns the number of browsers the job currently owns.
func (j *Job) BrowserCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.browsers)
}

// snapshotBrowsers returns the currently owned handles without holding
// the lock during whatever the caller does with them.
func (j *Job) snapshotBrowsers() []browser.Handle {
	j.mu.Lock()
	defer j.mu.Unlock()

	handles := make([]browser.Handle, 0, len(j.browsers))
	for _, h := range j.browsers {
		handles = append(handles, h)
	}
	return handles
}

// CloseOrKill closes a browser gracefully and falls back to force
// termination if the graceful close fails. The browser is never left
// running.
func CloseOrKill(h browser.Handle) {
	if err := h.Close(); err != nil {
		debugLog.Warnf("Graceful close of browser %s (%s) failed, killing: %v", h.ID(), h.Name(), err)
		if killErr := h.Kill(); killErr != nil {
			debugLog.Errorf("Failed to kill browser %s (%s): %v", h.ID(), h.Name(), killErr)
		}
	}
}
