package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
)

// AutoMod thresholds.
const (
	// MinMessageInterval is the shortest allowed gap between two messages
	// from one identity before they count as spam.
	MinMessageInterval = 200 * time.Millisecond

	// SpamWarningLimit is how many warnings an identity accumulates before
	// the next violation kicks them.
	SpamWarningLimit = 3

	// WindowThreshold is the number of messages allowed per shared
	// 60-second window before further ones count as slow spam.
	WindowThreshold = 7

	// WindowInterval is the shared message-count window length. The window
	// is global: it resets for all identities simultaneously, not
	// per-identity sliding. Burst timing near a boundary can therefore
	// reset a sender's count early; that is accepted behavior.
	WindowInterval = time.Minute

	// DefaultMuteDuration is the cooldown applied after a kick.
	DefaultMuteDuration = 120 * time.Second
)

// Notifier delivers system notices back into message delivery (the unmute
// announcement).
type Notifier interface {
	SystemNotice(text string)
}

type autoModState struct {
	lastText string
	lastAt   time.Time
	warnings int
	window   int
}

// AutoMod is the per-sender abuse-rate state machine gating every outbound
// message. All state lives under one mutex; mute-expiry callbacks take the
// same mutex, so an unmute can never race a concurrent verdict for the
// same identity.
type AutoMod struct {
	minLen   int
	maxLen   int
	notifier Notifier

	mu     sync.Mutex
	states map[string]*autoModState
	muted  map[string]*time.Timer

	now func() time.Time
}

func NewAutoMod(minLen, maxLen int, notifier Notifier) *AutoMod {
	return &AutoMod{
		minLen:   minLen,
		maxLen:   maxLen,
		notifier: notifier,
		states:   make(map[string]*autoModState),
		muted:    make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// SetNotifier installs the unmute-notice sink after construction. The
// engine and the message pipeline reference each other, so one of them has
// to be wired late.
func (a *AutoMod) SetNotifier(notifier Notifier) {
	a.mu.Lock()
	a.notifier = notifier
	a.mu.Unlock()
}

// Evaluate runs one message through the decision chain and returns the
// verdict. State for the sender is created on first sight and lives for
// the process lifetime.
func (a *AutoMod) Evaluate(msg domain.Message) domain.Verdict {
	identity := msg.Author.Id
	now := a.now()

	a.mu.Lock()
	verdict := a.evaluateLocked(identity, msg.Text, now)
	a.mu.Unlock()

	automodVerdictsTotal.WithLabelValues(string(verdict)).Inc()
	return verdict
}

func (a *AutoMod) evaluateLocked(identity, text string, now time.Time) domain.Verdict {
	if _, muted := a.muted[identity]; muted {
		return domain.VerdictMuted
	}

	st, ok := a.states[identity]
	if !ok {
		a.states[identity] = &autoModState{lastText: text, lastAt: now}
		return domain.VerdictPass
	}

	if strings.TrimSpace(text) == strings.TrimSpace(st.lastText) {
		return domain.VerdictDuplicate
	}

	if now.Sub(st.lastAt) < MinMessageInterval {
		// The gap is measured against the previous message regardless of
		// its verdict, so a steady flood keeps counting as rapid.
		st.lastAt = now
		st.warnings++
		if st.warnings <= SpamWarningLimit {
			return domain.VerdictSpam
		}
		// Warning counter is consumed by the kick; the caller is expected
		// to mute the sender for the cooldown.
		st.warnings = 0
		return domain.VerdictKicked
	}

	length := utf8.RuneCountInString(strings.TrimSpace(text))
	if a.maxLen > 0 && length > a.maxLen {
		return domain.VerdictTooLong
	}
	if length < a.minLen {
		return domain.VerdictTooShort
	}

	if st.window >= WindowThreshold {
		st.warnings++
		if st.warnings <= SpamWarningLimit {
			return domain.VerdictSlowSpam
		}
		st.warnings = 0
		return domain.VerdictKicked
	}

	st.lastText = text
	st.lastAt = now
	st.window++
	return domain.VerdictPass
}

// Mute adds an identity to the mute set for the given duration, replacing
// any pending unmute timer. Muting consumes the sender's warning counter.
func (a *AutoMod) Mute(identity string, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultMuteDuration
	}

	a.mu.Lock()
	if timer, ok := a.muted[identity]; ok {
		timer.Stop()
	} else {
		automodMutedUsers.Inc()
	}
	if st, ok := a.states[identity]; ok {
		st.warnings = 0
	}
	a.muted[identity] = time.AfterFunc(duration, func() {
		a.Unmute(identity)
	})
	a.mu.Unlock()

	logger.Log.Info("identity muted", "identity", identity, "duration", duration)
}

// Unmute removes an identity from the mute set and announces it via the
// notifier. Idempotent: a second call (timer racing an explicit unmute)
// does nothing.
func (a *AutoMod) Unmute(identity string) {
	a.mu.Lock()
	timer, ok := a.muted[identity]
	if !ok {
		a.mu.Unlock()
		return
	}
	timer.Stop()
	delete(a.muted, identity)
	notifier := a.notifier
	a.mu.Unlock()

	automodMutedUsers.Dec()
	if notifier != nil {
		notifier.SystemNotice(identity + " is no longer muted")
	}
}

// IsMuted reports whether an identity is currently muted.
func (a *AutoMod) IsMuted(identity string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.muted[identity]
	return ok
}

// ResetWindow zeroes the shared message-count window for all identities.
func (a *AutoMod) ResetWindow() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, st := range a.states {
		st.window = 0
	}
}

// StartWindowReset resets the shared window on a fixed interval until ctx
// is done.
func (a *AutoMod) StartWindowReset(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started automod window reset", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.ResetWindow()
			case <-ctx.Done():
				logger.Log.Info("automod window reset shutting down gracefully")
				return
			}
		}
	}()
}

// Stop cancels all pending unmute timers without emitting notices.
func (a *AutoMod) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for identity, timer := range a.muted {
		timer.Stop()
		delete(a.muted, identity)
		automodMutedUsers.Dec()
	}
}
