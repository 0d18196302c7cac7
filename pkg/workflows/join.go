package workflows

import (
	"fmt"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/types"
)

// JoinGroups drives one session through its assigned slice of group
// links, producing one outcome per link attempted. A missing profile
// fails the whole session with a single outcome and no navigation.
// Cancellation breaks the loop between links; outcomes already
// produced are kept.
func (e *Engine) JoinGroups(job *jobs.Job, tenantID, sessionName string, links []string) (outcomes []types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			debugLog.Errorf("[JOB %s] join workflow panic for %s: %v", job.ID(), sessionName, r)
			outcomes = append(outcomes, types.JoinOutcome(sessionName, false, "", fmt.Sprintf("unexpected failure: %v", r)))
		}
	}()
	return e.joinGroups(job, tenantID, sessionName, links)
}

func (e *Engine) joinGroups(job *jobs.Job, tenantID, sessionName string, links []string) []types.Outcome {
	// A session with nothing assigned does no work at all, not even
	// the profile preflight.
	if len(links) == 0 {
		return nil
	}

	if !e.profiles.Exists(tenantID, sessionName) {
		return []types.Outcome{types.JoinOutcome(sessionName, false, "", "profile not found")}
	}

	if job.Cancelled() {
		return nil
	}

	handle, release, err := e.openBrowser(job, sessionName, e.profiles.ResolvePath(tenantID, sessionName))
	if err != nil {
		return []types.Outcome{types.JoinOutcome(sessionName, false, "", fmt.Sprintf("failed to launch browser: %v", err))}
	}
	defer release()

	page := handle.Page()

	var outcomes []types.Outcome
	for _, link := range links {
		if job.Cancelled() {
			break
		}
		outcomes = append(outcomes, e.joinOne(job, page, sessionName, link))
	}
	return outcomes
}

// joinOne navigates to a single group and clicks its join control.
func (e *Engine) joinOne(job *jobs.Job, page browser.Page, sessionName, link string) types.Outcome {
	wf := e.cfg.Workflow

	if !e.policy.IsAllowed(link) {
		return types.JoinOutcome(sessionName, false, link, "link not allowed by policy")
	}

	if err := page.Navigate(link, browser.NavigateOptions{
		WaitUntil: "domcontentloaded",
		Timeout:   float64(wf.NavigationTimeoutMs),
	}); err != nil {
		return types.JoinOutcome(sessionName, false, link, fmt.Sprintf("navigation failed: %v", err))
	}

	v, ok := probeFirst(page, joinVariants, wf.ProbeTimeoutMs)
	if !ok {
		return types.JoinOutcome(sessionName, false, link, "join control not found")
	}

	if err := page.Click(browser.ClickOptions{Selector: v.Selector, Timeout: float64(wf.ActionTimeoutMs)}); err != nil {
		return types.JoinOutcome(sessionName, false, link, fmt.Sprintf("join click failed (%s): %v", v.Tag, err))
	}

	// Let the click commit before the next navigation rips the page away.
	page.Pause(float64(wf.SettleDelayMs))

	debugLog.Infof("[JOB %s] %s: joined %s (%s)", job.ID(), sessionName, link, v.Tag)
	return types.JoinOutcome(sessionName, true, link, fmt.Sprintf("joined (%s)", v.Tag))
}
