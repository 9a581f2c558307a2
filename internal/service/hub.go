package service

import (
	"sync"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
)

// Hub is an in-process Broadcaster: subscribers get a buffered channel of
// accepted messages. A subscriber that falls behind has messages dropped
// rather than blocking the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan domain.Message]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.Message]struct{})}
}

func (h *Hub) Subscribe() chan domain.Message {
	ch := make(chan domain.Message, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan domain.Message) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Broadcast(msg domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default: // slow subscriber, drop
		}
	}
}
