package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (b *fakeBroadcaster) Broadcast(msg domain.Message) {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

func (b *fakeBroadcaster) all() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.msgs...)
}

func newTestMessages(t *testing.T) (*Messages, *AutoMod, *fakeBroadcaster, *time.Time) {
	t.Helper()
	automod, now := newTestAutoMod(nil)
	t.Cleanup(automod.Stop)
	broadcaster := &fakeBroadcaster{}
	messages := NewMessages(automod, NewHistory(100), broadcaster, time.Hour)
	return messages, automod, broadcaster, now
}

func TestMessagesSend(t *testing.T) {
	messages, _, broadcaster, _ := newTestMessages(t)
	author := domain.User{Id: "alice@example.com"}

	msg, verdict := messages.Send(author, "hello there")
	assert.Equal(t, domain.VerdictPass, verdict)
	assert.NotEmpty(t, msg.Id)
	assert.Equal(t, author, msg.Author)
	assert.False(t, msg.System)

	got := broadcaster.all()
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
	assert.Equal(t, []domain.Message{msg}, messages.Recent(0))
}

func TestMessagesSendSanitizes(t *testing.T) {
	messages, _, broadcaster, _ := newTestMessages(t)

	msg, verdict := messages.Send(domain.User{Id: "alice"}, `<script>alert(1)</script>hi <b>there</b>`)
	assert.Equal(t, domain.VerdictPass, verdict)
	assert.Equal(t, "hi there", msg.Text)
	require.Len(t, broadcaster.all(), 1)
	assert.Equal(t, "hi there", broadcaster.all()[0].Text)
}

func TestMessagesSendRejectedNotDelivered(t *testing.T) {
	messages, _, broadcaster, now := newTestMessages(t)
	author := domain.User{Id: "alice"}

	_, verdict := messages.Send(author, "hello")
	require.Equal(t, domain.VerdictPass, verdict)

	*now = now.Add(time.Second)
	_, verdict = messages.Send(author, "hello")
	assert.Equal(t, domain.VerdictDuplicate, verdict)

	assert.Len(t, broadcaster.all(), 1, "rejected message must not reach delivery")
	assert.Len(t, messages.Recent(0), 1)
}

func TestMessagesKickMutesAndAnnounces(t *testing.T) {
	messages, automod, broadcaster, now := newTestMessages(t)
	// Wire unmute notices back into the pipeline.
	automod.notifier = messages
	author := domain.User{Id: "bob"}

	_, verdict := messages.Send(author, "msg 0")
	require.Equal(t, domain.VerdictPass, verdict)
	for i := 1; i <= SpamWarningLimit; i++ {
		*now = now.Add(50 * time.Millisecond)
		_, verdict = messages.Send(author, fmt.Sprintf("msg %d", i))
		require.Equal(t, domain.VerdictSpam, verdict)
	}

	*now = now.Add(50 * time.Millisecond)
	_, verdict = messages.Send(author, "msg 4")
	assert.Equal(t, domain.VerdictKicked, verdict)
	assert.True(t, automod.IsMuted("bob"))

	got := broadcaster.all()
	require.Len(t, got, 2, "the pass and the mute notice")
	notice := got[1]
	assert.True(t, notice.System)
	assert.Contains(t, notice.Text, "bob")
	assert.Contains(t, notice.Text, "muted")

	// Further messages bounce off the mute.
	*now = now.Add(time.Minute)
	_, verdict = messages.Send(author, "still here?")
	assert.Equal(t, domain.VerdictMuted, verdict)

	// Unmuting announces through the same pipeline, ungated.
	automod.Unmute("bob")
	got = broadcaster.all()
	require.Len(t, got, 3)
	assert.True(t, got[2].System)
	assert.Contains(t, got[2].Text, "no longer muted")
}

func TestMessagesSystemNoticeBypassesGate(t *testing.T) {
	messages, automod, broadcaster, _ := newTestMessages(t)
	automod.Mute("system", time.Hour)

	messages.SystemNotice("maintenance in 5 minutes")
	messages.SystemNotice("maintenance in 5 minutes")

	got := broadcaster.all()
	require.Len(t, got, 2, "system messages skip duplicate and mute checks")
	for _, msg := range got {
		assert.True(t, msg.System)
		assert.NotEmpty(t, msg.Id)
	}
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(domain.Message{Id: fmt.Sprintf("%d", i)})
	}

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "2", recent[0].Id)
	assert.Equal(t, "4", recent[2].Id)

	assert.Len(t, h.Recent(2), 2)
	assert.Equal(t, "3", h.Recent(2)[0].Id)
	assert.Len(t, h.Recent(10), 3)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe()
	second := hub.Subscribe()

	hub.Broadcast(domain.Message{Id: "m1"})
	assert.Equal(t, "m1", (<-first).Id)
	assert.Equal(t, "m1", (<-second).Id)

	hub.Unsubscribe(second)
	_, open := <-second
	assert.False(t, open)

	hub.Broadcast(domain.Message{Id: "m2"})
	assert.Equal(t, "m2", (<-first).Id)

	hub.Unsubscribe(first)
	hub.Unsubscribe(first)
}

func TestHubSlowSubscriberDropped(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe()

	// Fill the buffer and then some; Broadcast must never block.
	for i := 0; i < 100; i++ {
		hub.Broadcast(domain.Message{Id: fmt.Sprintf("%d", i)})
	}

	assert.Equal(t, 64, len(slow))
	hub.Unsubscribe(slow)
}
