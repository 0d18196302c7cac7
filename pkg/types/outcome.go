package types

// OutcomeKind identifies which workflow produced an outcome.
type OutcomeKind string

const (
	OutcomeKindSession OutcomeKind = "session" // OutcomeKindSession is emitted by the session creation workflow.
	OutcomeKindJoin    OutcomeKind = "join"    // OutcomeKindJoin is emitted by the group join workflow.
	OutcomeKindPost    OutcomeKind = "post"    // OutcomeKindPost is emitted by the post and comment workflow.
)

// Outcome records the result of one unit of work: one account logged
// in, one group link visited, or one post attempt on one session.
// Only the fields relevant to the Kind are populated.
type Outcome struct {
	// Kind indicates which workflow produced this outcome.
	Kind OutcomeKind `json:"kind"`

	// OK reports whether the unit of work succeeded.
	OK bool `json:"ok"`

	// Key identifies the subject: the account UID for session
	// outcomes, the session name for join and post outcomes.
	Key string `json:"key"`

	// Target is the group link for join outcomes and the resolved
	// group URL for post outcomes. Empty for session outcomes.
	Target string `json:"target,omitempty"`

	// Message carries the failure reason, or a short note on success
	// (for example when a session was already authenticated).
	Message string `json:"message,omitempty"`

	// Path is the profile directory backing the session. Populated
	// for session outcomes.
	Path string `json:"path,omitempty"`

	// Posted reports whether the post itself was published. Only
	// meaningful for post outcomes: a post can succeed while the
	// follow-up comment fails.
	Posted bool `json:"posted,omitempty"`

	// Commented reports whether the follow-up comment was submitted.
	// Only meaningful for post outcomes.
	Commented bool `json:"commented,omitempty"`
}

// SessionOutcome builds a session creation outcome.
func SessionOutcome(uid string, ok bool, path, message string) Outcome {
	return Outcome{
		Kind:    OutcomeKindSession,
		OK:      ok,
		Key:     uid,
		Path:    path,
		Message: message,
	}
}

// JoinOutcome builds a group join outcome.
func JoinOutcome(session string, ok bool, link, message string) Outcome {
	return Outcome{
		Kind:    OutcomeKindJoin,
		OK:      ok,
		Key:     session,
		Target:  link,
		Message: message,
	}
}

// PostOutcome builds a post and comment outcome.
func PostOutcome(session string, posted, commented bool, target, message string) Outcome {
	return Outcome{
		Kind:      OutcomeKindPost,
		OK:        posted && commented,
		Key:       session,
		Target:    target,
		Message:   message,
		Posted:    posted,
		Commented: commented,
	}
}

// Summary aggregates outcome counts for a finished job.
type Summary struct {
	// Success is the number of outcomes with OK set.
	Success int `json:"success"`

	// Failed is the number of outcomes without OK set.
	Failed int `json:"failed"`

	// Total is the number of outcomes inspected.
	Total int `json:"total"`
}

// Summarize scans a result set and counts successes and failures.
// Success and Failed always add up to Total.
func Summarize(results []Outcome) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.OK {
			s.Success++
		} else {
			s.Failed++
		}
	}
	return s
}

// Report is the return value of every orchestrator entry point: the
// job identifier, the per-unit outcomes in completion order, and the
// aggregate summary.
type Report struct {
	// JobID is the identifier assigned when the job was registered.
	JobID string `json:"job_id"`

	// Results holds one outcome per unit of work, appended in
	// completion order.
	Results []Outcome `json:"results"`

	// Summary aggregates the results.
	Summary Summary `json:"summary"`
}
