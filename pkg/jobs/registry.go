package jobs

import (
	"sync"

	"github.com/google/uuid"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/telemetry"
)

// Registry is the process-wide table of in-flight jobs. It exists so
// a global stop can reach every live browser regardless of which
// orchestration call opened it.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
	}
}

// Create allocates a new job with an empty browser set and a cleared
// cancellation flag, registers it under a fresh id, and returns it.
func (r *Registry) Create() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := &Job{
		id:       uuid.New().String(),
		browsers: make(map[string]browser.Handle),
	}
	r.jobs[job.id] = job

	telemetry.JobsInFlight.Inc()
	debugLog.Infof("[JOB %s] registered", job.id)
	return job
}

// Dispose removes a job from the registry once its orchestration call
// has returned. The job's browsers should all be closed and
// unregistered by then; any stragglers indicate a workflow bug, so
// they are flagged loudly and shut down rather than leaked.
func (r *Registry) Dispose(job *Job) {
	r.mu.Lock()
	_, present := r.jobs[job.id]
	delete(r.jobs, job.id)
	r.mu.Unlock()

	if !present {
		// Already removed by a concurrent RequestStopAll.
		return
	}
	telemetry.JobsInFlight.Dec()

	stragglers := job.snapshotBrowsers()
	if len(stragglers) > 0 {
		debugLog.Errorf("[JOB %s] disposed with %d browser(s) still registered, closing them", job.id, len(stragglers))
		for _, h := range stragglers {
			CloseOrKill(h)
			job.UnregisterBrowser(h)
		}
	}

	debugLog.Infof("[JOB %s] disposed", job.id)
}

// RequestStopAll cancels every registered job, then closes every
// browser those jobs own, force terminating any that refuse to close
// gracefully. The registry is cleared afterwards. This is the global
// graceful-shutdown entry point.
func (r *Registry) RequestStopAll() {
	telemetry.StopAllRequests.Inc()

	r.mu.Lock()
	all := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, job)
	}
	r.jobs = make(map[string]*Job)
	r.mu.Unlock()

	// Flags first so every worker sees the stop before its next safe
	// point, then the browsers.
	for _, job := range all {
		job.Cancel()
	}

	for _, job := range all {
		handles := job.snapshotBrowsers()
		debugLog.Infof("[JOB %s] stop requested, closing %d browser(s)", job.id, len(handles))
		for _, h := range handles {
			CloseOrKill(h)
			job.UnregisterBrowser(h)
		}
		telemetry.JobsInFlight.Dec()
	}
}

// Count returns the number of registered jobs.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
