// Package orchestrator exposes the job entry points: create sessions,
// join groups, post and comment, and the global stop. Each call runs a
// bounded worker pool over its work items, registers the job for
// cooperative cancellation, and returns a report with per-item
// outcomes in completion order plus an aggregate summary.
package orchestrator

import (
	"fmt"

	"github.com/winkey1/fbbot/pkg/config"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/logging"
	"github.com/winkey1/fbbot/pkg/profiles"
	"github.com/winkey1/fbbot/pkg/telemetry"
	"github.com/winkey1/fbbot/pkg/types"
	"github.com/winkey1/fbbot/pkg/workflows"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("orchestrator")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize orchestrator logger, using stderr fallback: %v", err)
	}
}

// Orchestrator ties the registry, profile directory, and workflow
// engine together behind the four public operations.
type Orchestrator struct {
	cfg      *config.Config
	engine   *workflows.Engine
	registry *jobs.Registry
	profiles *profiles.Directory
}

// New assembles an orchestrator from its collaborators.
func New(cfg *config.Config, engine *workflows.Engine, registry *jobs.Registry, dir *profiles.Directory) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		profiles: dir,
	}
}

// CreateSessions establishes an authenticated browser session for each
// account, one browser per account, at most concurrency at a time.
func (o *Orchestrator) CreateSessions(tenantID string, accounts []types.Account, concurrency int) (*types.Report, error) {
	if err := o.profiles.EnsureTenantRoot(tenantID); err != nil {
		return nil, fmt.Errorf("failed to prepare tenant directory: %w", err)
	}

	job := o.registry.Create()
	defer o.registry.Dispose(job)

	concurrency = o.effectiveConcurrency(concurrency)
	debugLog.Infof("[JOB %s] createSessions: %d account(s), concurrency %d", job.ID(), len(accounts), concurrency)
	telemetry.JobsStarted.WithLabelValues(string(types.OutcomeKindSession)).Inc()

	results := jobs.Run(job, len(accounts), concurrency, func(index int) []types.Outcome {
		return o.engine.CreateSession(job, tenantID, accounts[index])
	})

	return o.finish(job, types.OutcomeKindSession, results), nil
}

// JoinGroups partitions the group links across the named sessions in
// input order and drives each session through its assigned chunk.
// Partitioning happens once, before any worker starts.
func (o *Orchestrator) JoinGroups(tenantID string, sessionNames, groupLinks []string, concurrency, groupsPerSession int) (*types.Report, error) {
	if err := o.profiles.EnsureTenantRoot(tenantID); err != nil {
		return nil, fmt.Errorf("failed to prepare tenant directory: %w", err)
	}

	if groupsPerSession < 1 {
		groupsPerSession = o.cfg.Workflow.GroupsPerSession
	}
	chunks := workflows.PartitionLinks(groupLinks, len(sessionNames), groupsPerSession)

	job := o.registry.Create()
	defer o.registry.Dispose(job)

	concurrency = o.effectiveConcurrency(concurrency)
	debugLog.Infof("[JOB %s] joinGroups: %d session(s), %d link(s), %d per session, concurrency %d",
		job.ID(), len(sessionNames), len(groupLinks), groupsPerSession, concurrency)
	telemetry.JobsStarted.WithLabelValues(string(types.OutcomeKindJoin)).Inc()

	results := jobs.Run(job, len(sessionNames), concurrency, func(index int) []types.Outcome {
		return o.engine.JoinGroups(job, tenantID, sessionNames[index], chunks[index])
	})

	return o.finish(job, types.OutcomeKindJoin, results), nil
}

// PostAndComment publishes the given content to every group each
// session discovers from its feed, commenting on each post afterward.
func (o *Orchestrator) PostAndComment(tenantID string, sessionNames []string, content types.PostContent, concurrency int) (*types.Report, error) {
	if err := o.profiles.EnsureTenantRoot(tenantID); err != nil {
		return nil, fmt.Errorf("failed to prepare tenant directory: %w", err)
	}

	job := o.registry.Create()
	defer o.registry.Dispose(job)

	concurrency = o.effectiveConcurrency(concurrency)
	debugLog.Infof("[JOB %s] postAndComment: %d session(s), concurrency %d", job.ID(), len(sessionNames), concurrency)
	telemetry.JobsStarted.WithLabelValues(string(types.OutcomeKindPost)).Inc()

	results := jobs.Run(job, len(sessionNames), concurrency, func(index int) []types.Outcome {
		return o.engine.PostAndComment(job, tenantID, sessionNames[index], content)
	})

	return o.finish(job, types.OutcomeKindPost, results), nil
}

// StopAll cancels every in-flight job and closes or kills every
// tracked browser. Calls that are mid-flight return whatever outcomes
// they had already collected.
func (o *Orchestrator) StopAll() {
	debugLog.Infof("stop requested for all jobs (%d registered)", o.registry.Count())
	o.registry.RequestStopAll()
}

// effectiveConcurrency clamps the caller's concurrency to at least one
// worker and at most the configured ceiling.
func (o *Orchestrator) effectiveConcurrency(requested int) int {
	if requested < 1 {
		requested = 1
	}
	if ceiling := o.cfg.Workflow.MaxConcurrency; ceiling > 0 && requested > ceiling {
		requested = ceiling
	}
	return requested
}

// finish assembles the report and records the per-kind outcome and
// completion metrics.
func (o *Orchestrator) finish(job *jobs.Job, kind types.OutcomeKind, results []types.Outcome) *types.Report {
	for _, r := range results {
		if r.OK {
			telemetry.OutcomeSuccess.WithLabelValues(string(r.Kind)).Inc()
		} else {
			telemetry.OutcomeFailure.WithLabelValues(string(r.Kind)).Inc()
		}
	}
	telemetry.JobsCompleted.WithLabelValues(string(kind)).Inc()

	summary := types.Summarize(results)
	debugLog.Infof("[JOB %s] finished: %d ok, %d failed, %d total", job.ID(), summary.Success, summary.Failed, summary.Total)

	return &types.Report{
		JobID:   job.ID(),
		Results: results,
		Summary: summary,
	}
}
