package workflows

import (
	"fmt"

	"github.com/winkey1/fbbot/pkg/browser"
	"github.com/winkey1/fbbot/pkg/jobs"
	"github.com/winkey1/fbbot/pkg/types"
)

// CreateSession establishes an authenticated session for one account:
// launch against the account's profile, probe for an existing login,
// and run the login form if needed. Relaunching against an existing
// profile usually lands on the already-authenticated path, which is
// what makes the operation idempotent.
//
// A cancelled job produces no outcome for the item; every other
// failure mode produces exactly one failed outcome. Panics from the
// driver are contained here and never escape the worker.
func (e *Engine) CreateSession(job *jobs.Job, tenantID string, account types.Account) (outcomes []types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			debugLog.Errorf("[JOB %s] session workflow panic for %s: %v", job.ID(), account.UID, r)
			outcomes = []types.Outcome{types.SessionOutcome(account.UID, false, "", fmt.Sprintf("unexpected failure: %v", r))}
		}
	}()
	return e.createSession(job, tenantID, account)
}

func (e *Engine) createSession(job *jobs.Job, tenantID string, account types.Account) []types.Outcome {
	uid := account.UID
	profilePath := e.profiles.ResolvePath(tenantID, uid)
	wf := e.cfg.Workflow

	if job.Cancelled() {
		return nil
	}

	handle, release, err := e.openBrowser(job, uid, profilePath)
	if err != nil {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, fmt.Sprintf("failed to launch browser: %v", err))}
	}
	defer release()

	page := handle.Page()

	// Navigation failures are tolerated; the authenticated probe below
	// is the real gate.
	if err := page.Navigate(e.cfg.Target.BaseURL, browser.NavigateOptions{
		WaitUntil: "domcontentloaded",
		Timeout:   float64(wf.NavigationTimeoutMs),
	}); err != nil {
		debugLog.Warnf("[JOB %s] %s: home navigation failed, probing anyway: %v", job.ID(), uid, err)
	}

	if job.Cancelled() {
		return nil
	}

	if v, ok := probeFirst(page, authMarkerVariants, wf.AuthMarkerTimeoutMs); ok {
		debugLog.Infof("[JOB %s] %s: already authenticated (%s)", job.ID(), uid, v.Tag)
		return []types.Outcome{types.SessionOutcome(uid, true, profilePath, "already authenticated")}
	}

	if job.Cancelled() {
		return nil
	}

	// Not authenticated, so the login form must appear. Its absence
	// means this page load is unusable.
	if err := page.WaitFor(browser.WaitOptions{
		Selector: loginEmailSelector,
		State:    "visible",
		Timeout:  float64(wf.LoginFormTimeoutMs),
	}); err != nil {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, "login form not found: selector/layout mismatch or network issue")}
	}

	actionTimeout := float64(wf.ActionTimeoutMs)
	if err := page.Fill(browser.FillOptions{Selector: loginEmailSelector, Value: account.Email, Timeout: actionTimeout}); err != nil {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, fmt.Sprintf("email fill failed: %v", err))}
	}
	if err := page.Fill(browser.FillOptions{Selector: loginPassSelector, Value: account.Password, Timeout: actionTimeout}); err != nil {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, fmt.Sprintf("password fill failed: %v", err))}
	}
	if err := page.Click(browser.ClickOptions{Selector: loginSubmitSelector, Timeout: actionTimeout}); err != nil {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, fmt.Sprintf("login submit failed: %v", err))}
	}

	// Race the authenticated marker against a fixed ceiling: respond
	// as soon as it renders, give up after the bound either way.
	_ = page.WaitFor(browser.WaitOptions{
		Selector: unionSelector(authMarkerVariants),
		State:    "visible",
		Timeout:  float64(wf.PostLoginTimeoutMs),
	})

	if job.Cancelled() {
		return nil
	}

	// Verify with a short re-probe. Wrong credentials and UI drift are
	// indistinguishable from out here, so both fail the same way.
	if _, ok := probeFirst(page, authMarkerVariants, wf.AuthMarkerTimeoutMs); !ok {
		return []types.Outcome{types.SessionOutcome(uid, false, profilePath, "login not confirmed after submit")}
	}

	debugLog.Infof("[JOB %s] %s: session established", job.ID(), uid)
	return []types.Outcome{types.SessionOutcome(uid, true, profilePath, "")}
}
