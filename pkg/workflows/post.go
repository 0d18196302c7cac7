package workflows

import (
	"errors"
	"fmt"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/types"
)

// PostAndComment publishes an image post with a follow-up comment to
// every group discovered from the session's groups feed, producing one
// outcome per discovered group. Each group gets a bounded number of
// attempts; a post that publishes but fails to comment is recorded as
// posted=true, commented=false rather than a wholesale failure.
func (e *Engine) PostAndComment(job *jobs.Job, tenantID, sessionName string, content types.PostContent) (outcomes []types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			debugLog.Errorf("[JOB %s] post workflow panic for %s: %v", job.ID(), sessionName, r)
			outcomes = append(outcomes, types.PostOutcome(sessionName, false, false, "", fmt.Sprintf("unexpected failure: %v", r)))
		}
	}()
	return e.postAndComment(job, tenantID, sessionName, content)
}

func (e *Engine) postAndComment(job *jobs.Job, tenantID, sessionName string, content types.PostContent) []types.Outcome {
	if !e.profiles.Exists(tenantID, sessionName) {
		return []types.Outcome{types.PostOutcome(sessionName, false, false, "", "profile not found")}
	}

	if job.Cancelled() {
		return nil
	}

	handle, release, err := e.openBrowser(job, sessionName, e.profiles.ResolvePath(tenantID, sessionName))
	if err != nil {
		return []types.Outcome{types.PostOutcome(sessionName, false, false, "", fmt.Sprintf("failed to launch browser: %v", err))}
	}
	defer release()

	page := handle.Page()

	targets, err := e.discoverTargets(page)
	if err != nil {
		return []types.Outcome{types.PostOutcome(sessionName, false, false, "", err.Error())}
	}
	if len(targets) == 0 {
		return []types.Outcome{types.PostOutcome(sessionName, false, false, "", "no group links found in feed")}
	}

	debugLog.Infof("[JOB %s] %s: discovered %d group(s)", job.ID(), sessionName, len(targets))

	var outcomes []types.Outcome
	for _, target := range targets {
		if job.Cancelled() {
			break
		}
		if outcome, emitted := e.postToGroup(job, page, sessionName, target, content); emitted {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// discoverTargets opens the groups feed and scans it for links that
// are exactly a numeric group root, filtered through the link policy.
func (e *Engine) discoverTargets(page browser.Page) ([]string, error) {
	wf := e.cfg.Workflow
	feedURL := e.cfg.Target.BaseURL + e.cfg.Target.GroupsFeedPath

	if err := page.Navigate(feedURL, browser.NavigateOptions{
		WaitUntil: "domcontentloaded",
		Timeout:   float64(wf.NavigationTimeoutMs),
	}); err != nil {
		return nil, fmt.Errorf("failed to open groups feed: %v", err)
	}

	// The group rail renders after the document itself.
	page.Pause(float64(wf.SettleDelayMs))

	pageHTML, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed content: %v", err)
	}

	discovered, err := DiscoverGroupLinks(pageHTML, e.cfg.Target.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed for group links: %v", err)
	}

	targets := make([]string, 0, len(discovered))
	for _, t := range discovered {
		if e.policy.IsAllowed(t) {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// postToGroup attempts the post sequence against one group up to the
// configured attempt budget, reloading and pausing between attempts.
// emitted=false means the job was cancelled mid-target and no outcome
// should be recorded for it.
func (e *Engine) postToGroup(job *jobs.Job, page browser.Page, sessionName, target string, content types.PostContent) (types.Outcome, bool) {
	wf := e.cfg.Workflow
	var lastErr error

	for attempt := 1; attempt <= wf.PostAttempts; attempt++ {
		if job.Cancelled() {
			return types.Outcome{}, false
		}

		posted, commented, err := e.attemptPost(job, page, target, content)
		if errors.Is(err, errCancelled) {
			return types.Outcome{}, false
		}
		if posted {
			message := ""
			if !commented && err != nil {
				message = err.Error()
			}
			return types.PostOutcome(sessionName, posted, commented, target, message), true
		}

		lastErr = err
		debugLog.Warnf("[JOB %s] %s: attempt %d/%d on %s failed: %v", job.ID(), sessionName, attempt, wf.PostAttempts, target, err)

		if attempt < wf.PostAttempts {
			// Fresh page state before the next try.
			if reloadErr := page.Reload(browser.NavigateOptions{
				WaitUntil: "domcontentloaded",
				Timeout:   float64(wf.NavigationTimeoutMs),
			}); reloadErr != nil {
				debugLog.Warnf("[JOB %s] %s: reload between attempts failed: %v", job.ID(), sessionName, reloadErr)
			}
			page.Pause(float64(wf.RetryPauseMs))
		}
	}

	message := "post failed"
	if lastErr != nil {
		message = lastErr.Error()
	}
	return types.PostOutcome(sessionName, false, false, target, message), true
}

// attemptPost runs one post attempt: locate the composer entry (with a
// single fallback to the derived anonymous-post URL), attach the
// image, caption, publish, then comment. Once an entry variant is
// chosen, later failures fail the attempt; no other variant is tried
// within the same attempt.
func (e *Engine) attemptPost(job *jobs.Job, page browser.Page, target string, content types.PostContent) (posted, commented bool, err error) {
	wf := e.cfg.Workflow
	navOpts := browser.NavigateOptions{
		WaitUntil: "domcontentloaded",
		Timeout:   float64(wf.NavigationTimeoutMs),
	}
	actionTimeout := float64(wf.ActionTimeoutMs)

	if job.Cancelled() {
		return false, false, errCancelled
	}

	if err := page.Navigate(target, navOpts); err != nil {
		return false, false, fmt.Errorf("navigation failed: %v", err)
	}

	entry, ok := probeFirst(page, anonymousEntryVariants, wf.ProbeTimeoutMs)
	if !ok {
		if job.Cancelled() {
			return false, false, errCancelled
		}

		// The entry point is not on the group root for every group
		// type; try the derived discussion URL once.
		fallback := target + "/" + e.cfg.Target.AnonymousPostPath
		if err := page.Navigate(fallback, navOpts); err != nil {
			return false, false, fmt.Errorf("fallback navigation failed: %v", err)
		}
		if entry, ok = probeFirst(page, anonymousEntryVariants, wf.ProbeTimeoutMs); !ok {
			return false, false, fmt.Errorf("anonymous post entry not found")
		}
	}

	if job.Cancelled() {
		return false, false, errCancelled
	}

	if err := page.Click(browser.ClickOptions{Selector: entry.Selector, Timeout: actionTimeout}); err != nil {
		return false, false, fmt.Errorf("composer entry click failed (%s): %v", entry.Tag, err)
	}

	if err := page.WaitFor(browser.WaitOptions{
		Selector: composerDialogSelector,
		State:    "visible",
		Timeout:  actionTimeout,
	}); err != nil {
		return false, false, fmt.Errorf("composer did not open (%s): %v", entry.Tag, err)
	}

	if job.Cancelled() {
		return false, false, errCancelled
	}

	photo, ok := probeFirst(page, photoVariants, wf.ProbeTimeoutMs)
	if !ok {
		return false, false, fmt.Errorf("photo control not found in composer")
	}

	if err := page.Upload(browser.UploadOptions{
		TriggerSelector: photo.Selector,
		FilePath:        content.ImagePath,
		Timeout:         actionTimeout,
	}); err != nil {
		return false, false, fmt.Errorf("image attach failed: %v", err)
	}

	if content.Caption != "" {
		if err := page.Fill(browser.FillOptions{Selector: captionSelector, Value: content.Caption, Timeout: actionTimeout}); err != nil {
			return false, false, fmt.Errorf("caption fill failed: %v", err)
		}
	}

	if job.Cancelled() {
		return false, false, errCancelled
	}

	submit, ok := probeFirst(page, postSubmitVariants, wf.ProbeTimeoutMs)
	if !ok {
		return false, false, fmt.Errorf("submit control not found in composer")
	}

	// Submit stays disabled until the upload finishes processing.
	if !waitEnabled(page, submit.Selector, wf.UploadTimeoutMs) {
		return false, false, fmt.Errorf("submit control never became enabled")
	}

	if err := page.Click(browser.ClickOptions{Selector: submit.Selector, Timeout: actionTimeout}); err != nil {
		return false, false, fmt.Errorf("submit click failed: %v", err)
	}

	// The composer closes when publishing completes.
	_ = page.WaitFor(browser.WaitOptions{
		Selector: composerDialogSelector,
		State:    "detached",
		Timeout:  float64(wf.UploadTimeoutMs),
	})
	page.Pause(float64(wf.SettleDelayMs))

	// The post is live; everything below is the comment, whose failure
	// does not invalidate the post.
	if job.Cancelled() {
		return true, false, errCancelled
	}

	box, ok := probeFirst(page, commentBoxVariants, wf.ProbeTimeoutMs)
	if !ok {
		return true, false, fmt.Errorf("comment box not found")
	}

	if err := page.Click(browser.ClickOptions{Selector: box.Selector, Timeout: actionTimeout}); err != nil {
		return true, false, fmt.Errorf("comment box focus failed (%s): %v", box.Tag, err)
	}
	if err := page.Fill(browser.FillOptions{Selector: box.Selector, Value: content.Comment, Timeout: actionTimeout}); err != nil {
		return true, false, fmt.Errorf("comment fill failed: %v", err)
	}
	if err := page.Press(browser.PressOptions{Selector: box.Selector, Key: "Enter", Timeout: actionTimeout}); err != nil {
		return true, false, fmt.Errorf("comment submit failed: %v", err)
	}

	page.Pause(float64(wf.SettleDelayMs))
	return true, true, nil
}
