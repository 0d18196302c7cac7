// Package workflows implements the per-item state machines that drive
// one browser through the target site's UI: session creation, group
// join, and post with follow-up comment. The target UI is unreliable
// and localized, so every logical control is described as an ordered
// list of selector variants and every wait carries an explicit bound.
package workflows

import (
	"strings"

	"github.com/winkey1/fbbot/pkg/browser"
)

// Variant is one way to locate a logical UI control, usually differing
// by locale. Variants are probed in priority order and the tag of the
// matching variant is recorded in the outcome.
type Variant struct {
	// Tag is a short label for the variant, e.g. a locale code.
	Tag string

	// Selector locates the control.
	Selector string
}

// Login form controls. These are stable name attributes, not localized.
const (
	loginEmailSelector  = `input[name="email"]`
	loginPassSelector   = `input[name="pass"]`
	loginSubmitSelector = `button[name="login"]`
)

// composerDialogSelector is the post composer overlay.
const composerDialogSelector = `div[role="dialog"]`

// captionSelector is the free-text area inside the composer.
const captionSelector = `div[role="dialog"] div[role="textbox"]`

var (
	// authMarkerVariants only render for an authenticated session.
	authMarkerVariants = []Variant{
		{Tag: "left-rail", Selector: `div[data-pagelet="LeftRail"]`},
		{Tag: "profile-icon", Selector: `[aria-label="Your profile"]`},
	}

	// joinVariants are the group page's join control.
	joinVariants = []Variant{
		{Tag: "en", Selector: `div[role="button"]:has-text("Join group")`},
		{Tag: "vi", Selector: `div[role="button"]:has-text("Tham gia nhóm")`},
	}

	// anonymousEntryVariants open the anonymous post composer.
	anonymousEntryVariants = []Variant{
		{Tag: "en", Selector: `div[role="button"]:has-text("Anonymous post")`},
		{Tag: "vi", Selector: `div[role="button"]:has-text("Đăng ẩn danh")`},
	}

	// photoVariants open the file chooser inside the composer.
	photoVariants = []Variant{
		{Tag: "en", Selector: `div[role="dialog"] div[aria-label="Photo/video"]`},
		{Tag: "vi", Selector: `div[role="dialog"] div[aria-label="Ảnh/video"]`},
	}

	// postSubmitVariants publish the composed post.
	postSubmitVariants = []Variant{
		{Tag: "en", Selector: `div[role="dialog"] div[aria-label="Post"]`},
		{Tag: "vi", Selector: `div[role="dialog"] div[aria-label="Đăng"]`},
	}

	// commentBoxVariants are the comment input under a published post.
	commentBoxVariants = []Variant{
		{Tag: "en", Selector: `div[aria-label^="Write a comment"]`},
		{Tag: "vi", Selector: `div[aria-label^="Viết bình luận"]`},
	}
)

// probeFirst waits for each variant in order and returns the first one
// that becomes visible. All variants being absent is a normal result,
// not an error; probing is how optional UI is detected.
func probeFirst(page browser.Page, variants []Variant, timeoutMs int) (Variant, bool) {
	for _, v := range variants {
		err := page.WaitFor(browser.WaitOptions{
			Selector: v.Selector,
			State:    "visible",
			Timeout:  float64(timeoutMs),
		})
		if err == nil {
			return v, true
		}
	}
	return Variant{}, false
}

// unionSelector joins variant selectors into one selector list so a
// single wait can race all of them.
func unionSelector(variants []Variant) string {
	selectors := make([]string, len(variants))
	for i, v := range variants {
		selectors[i] = v.Selector
	}
	return strings.Join(selectors, ", ")
}

// waitEnabled polls the element's enabled state until it reports
// enabled or the budget runs out.
func waitEnabled(page browser.Page, selector string, timeoutMs int) bool {
	const pollMs = 250
	for waited := 0; ; waited += pollMs {
		if enabled, err := page.Enabled(selector); err == nil && enabled {
			return true
		}
		if waited >= timeoutMs {
			return false
		}
		page.Pause(pollMs)
	}
}
