package service

import (
	"sync"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
)

// History is an in-memory ring buffer of the most recent messages.
type History struct {
	mu   sync.RWMutex
	buf  []domain.Message
	size int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = 500
	}
	return &History{size: size}
}

func (h *History) Append(msg domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf = append(h.buf, msg)
	if len(h.buf) > h.size {
		h.buf = h.buf[len(h.buf)-h.size:]
	}
}

// Recent returns up to n most recent messages, oldest first.
func (h *History) Recent(n int) []domain.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.buf) {
		n = len(h.buf)
	}
	out := make([]domain.Message, n)
	copy(out, h.buf[len(h.buf)-n:])
	return out
}
