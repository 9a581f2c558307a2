package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
)

// Broadcaster fans a message out to connected clients. Fan-out semantics
// are outside this service; it only invokes the gate and hands accepted
// messages over.
type Broadcaster interface {
	Broadcast(msg domain.Message)
}

// Messages is the outbound message pipeline: sanitize, gate through
// AutoMod, then append to history and broadcast. It also implements
// Notifier so AutoMod unmute notices enter the same pipeline as system
// messages (system messages bypass the gate).
type Messages struct {
	automod      *AutoMod
	history      *History
	broadcaster  Broadcaster
	policy       *bluemonday.Policy
	muteDuration time.Duration
}

func NewMessages(automod *AutoMod, history *History, broadcaster Broadcaster, muteDuration time.Duration) *Messages {
	return &Messages{
		automod:      automod,
		history:      history,
		broadcaster:  broadcaster,
		policy:       bluemonday.StrictPolicy(),
		muteDuration: muteDuration,
	}
}

// Send runs one candidate message through the gate. A non-pass verdict
// short-circuits delivery; a kick additionally mutes the sender for the
// cooldown and announces it.
func (m *Messages) Send(author domain.User, text string) (domain.Message, domain.Verdict) {
	msg := domain.Message{
		Id:        uuid.NewString(),
		Author:    author,
		Text:      m.policy.Sanitize(text),
		CreatedAt: time.Now(),
	}

	verdict := m.automod.Evaluate(msg)
	if verdict == domain.VerdictKicked {
		m.automod.Mute(author.Id, m.muteDuration)
		m.SystemNotice(author.Id + " has been muted for spamming")
	}
	if !verdict.Allowed() {
		logger.Log.Info("message rejected", "author", author.Id, "verdict", verdict)
		return msg, verdict
	}

	m.history.Append(msg)
	m.broadcaster.Broadcast(msg)
	return msg, verdict
}

// SystemNotice delivers a system message, bypassing the gate.
func (m *Messages) SystemNotice(text string) {
	msg := domain.Message{
		Id:        uuid.NewString(),
		Author:    domain.User{Id: "system"},
		Text:      text,
		System:    true,
		CreatedAt: time.Now(),
	}
	m.history.Append(msg)
	m.broadcaster.Broadcast(msg)
}

// Recent returns up to n most recent messages, oldest first.
func (m *Messages) Recent(n int) []domain.Message {
	return m.history.Recent(n)
}
