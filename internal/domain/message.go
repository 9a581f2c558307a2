package domain

import "time"

type Message struct {
	Id        string
	Author    User
	Text      string
	System    bool
	CreatedAt time.Time
}

// Verdict is the outcome of one AutoMod evaluation.
type Verdict string

const (
	VerdictPass      Verdict = "pass"
	VerdictTooShort  Verdict = "too_short"
	VerdictTooLong   Verdict = "too_long"
	VerdictDuplicate Verdict = "duplicate"
	VerdictSpam      Verdict = "spam"
	VerdictSlowSpam  Verdict = "slow_spam"
	VerdictMuted     Verdict = "muted"
	VerdictKicked    Verdict = "kicked"
)

// Allowed reports whether a message with this verdict may proceed to
// history and broadcast.
func (v Verdict) Allowed() bool {
	return v == VerdictPass
}
