package workflows

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winkey1/fbbot/pkg/types"
)

func TestCreateSessionAlreadyAuthenticated(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	page := newFakePage()
	page.setVisible(authMarkerVariants[0].Selector, true)
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{
		UID:      "111",
		Email:    "a@x.com",
		Password: "p",
	})

	require.Len(t, outcomes, 1)
	outcome := outcomes[0]
	assert.Equal(t, types.OutcomeKindSession, outcome.Kind)
	assert.True(t, outcome.OK)
	assert.Equal(t, "111", outcome.Key)
	assert.True(t, strings.HasSuffix(outcome.Path, "111"), "profile path should end with the account number, got %q", outcome.Path)
	assert.Equal(t, "already authenticated", outcome.Message)

	// No login form interaction on the authenticated path.
	assert.Empty(t, page.fills)
	assert.Empty(t, page.clicks)
}

func TestCreateSessionLoginSucceeds(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	page := newFakePage()
	page.setVisible(loginEmailSelector, true)
	page.onClick = func(selector string) {
		if selector == loginSubmitSelector {
			page.setVisible(authMarkerVariants[0].Selector, true)
		}
	}
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{
		UID:      "111",
		Email:    "a@x.com",
		Password: "p",
	})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Empty(t, outcomes[0].Message)

	assert.Contains(t, page.fills, loginEmailSelector+"=a@x.com")
	assert.Contains(t, page.fills, loginPassSelector+"=p")
	assert.Contains(t, page.clicks, loginSubmitSelector)
}

func TestCreateSessionLoginFormMissing(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	// Neither the auth marker nor the login form ever renders.
	page := newFakePage()
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111"})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK)
	assert.Equal(t, "login form not found: selector/layout mismatch or network issue", outcomes[0].Message)

	require.Len(t, launcher.handles, 1)
	assert.True(t, launcher.handles[0].wasReleased())
	assert.Equal(t, 0, job.BrowserCount())
}

func TestCreateSessionLoginNotConfirmed(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	// Form is present but submitting never reveals an auth marker,
	// which is what wrong credentials look like from out here.
	page := newFakePage()
	page.setVisible(loginEmailSelector, true)
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111", Email: "a@x.com", Password: "bad"})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK)
	assert.Equal(t, "login not confirmed after submit", outcomes[0].Message)
}

func TestCreateSessionLaunchFailure(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)
	launcher.launchErr = errors.New("driver exploded")

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111"})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK)
	assert.Contains(t, outcomes[0].Message, "failed to launch browser")
	assert.Contains(t, outcomes[0].Message, "driver exploded")
}

func TestCreateSessionToleratesNavigationError(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	// Navigation times out but the profile is already signed in; the
	// probe, not the navigation, decides the outcome.
	page := newFakePage()
	page.navigateErr["https://www.facebook.com"] = errors.New("net::ERR_TIMED_OUT")
	page.setVisible(authMarkerVariants[1].Selector, true)
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111"})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
}

func TestCreateSessionFillFailure(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)

	page := newFakePage()
	page.setVisible(loginEmailSelector, true)
	page.fillErr[loginEmailSelector] = errors.New("element detached")
	launcher.pages["111"] = page

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111", Email: "a@x.com"})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK)
	assert.Contains(t, outcomes[0].Message, "email fill failed")
}

func TestCreateSessionCancelledBeforeLaunch(t *testing.T) {
	engine, launcher, _ := newTestEngine(t)
	job := newTestJob(t)
	job.Cancel()

	outcomes := engine.CreateSession(job, "tenant-a", types.Account{UID: "111"})

	assert.Empty(t, outcomes)
	assert.Equal(t, 0, launcher.launchCount())
}
