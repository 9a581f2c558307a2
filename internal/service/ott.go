package service

import (
	"sync"
	"time"

	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

// OTT defaults.
const (
	OTTTokenBytes = 32
	OTTDefaultTTL = 5 * time.Minute
)

type ottEntry struct {
	payload string
	typ     string
	timer   *time.Timer
}

type ottOwner struct {
	payload string
	typ     string
}

// OTTRegistry holds short-lived, single-use in-memory tokens correlating an
// out-of-band confirmation code with a pending action. At most one live
// token exists per (payload, type) pair: issuing a second one invalidates
// the first.
type OTTRegistry struct {
	mu      sync.Mutex
	entries map[string]*ottEntry
	byOwner map[ottOwner]string
	ttl     time.Duration
}

func NewOTTRegistry(ttl time.Duration) *OTTRegistry {
	if ttl <= 0 {
		ttl = OTTDefaultTTL
	}
	return &OTTRegistry{
		entries: make(map[string]*ottEntry),
		byOwner: make(map[ottOwner]string),
		ttl:     ttl,
	}
}

// Issue generates a random token tied to (payload, typ) and schedules its
// expiry. Any pre-existing token for the same pair is invalidated, so
// retriggering a flow ("resend code") never accumulates live tokens.
func (o *OTTRegistry) Issue(payload, typ string) string {
	token := utils.GenerateToken(OTTTokenBytes)

	o.mu.Lock()
	defer o.mu.Unlock()

	owner := ottOwner{payload, typ}
	if prev, ok := o.byOwner[owner]; ok {
		o.removeLocked(prev)
	}

	entry := &ottEntry{payload: payload, typ: typ}
	entry.timer = time.AfterFunc(o.ttl, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.removeLocked(token)
	})
	o.entries[token] = entry
	o.byOwner[owner] = token

	return token
}

// Consume performs the one-shot read. On success the expiry timer is
// cancelled and the entry removed, so a second Consume with the same token
// fails. Unknown token, wrong type, and post-expiry lookup are all the same
// not-found outcome: the caller learns nothing about why.
func (o *OTTRegistry) Consume(token, typ string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	entry, ok := o.entries[token]
	if !ok || entry.typ != typ {
		return "", false
	}
	o.removeLocked(token)
	return entry.payload, true
}

// Len reports the number of live tokens.
func (o *OTTRegistry) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Stop cancels all pending expiry timers.
func (o *OTTRegistry) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for token := range o.entries {
		o.removeLocked(token)
	}
	logger.Log.Info("ott registry stopped")
}

// removeLocked drops an entry and cancels its timer. Caller holds o.mu.
func (o *OTTRegistry) removeLocked(token string) {
	entry, ok := o.entries[token]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(o.entries, token)
	delete(o.byOwner, ottOwner{entry.payload, entry.typ})
}
