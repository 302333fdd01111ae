package session

import (
	"sync"
	"time"

	"gemini-playground/internal/model"
)

// History is the append-only turn log of one session.
type History struct {
	mu    sync.RWMutex
	turns []model.Turn
	now   func() time.Time
}

func NewHistory() *History {
	return &History{now: time.Now}
}

// Append records a turn and returns the stored copy.
func (h *History) Append(role, content string) model.Turn {
	turn := model.Turn{Role: role, Content: content, CreatedAt: h.now()}
	h.mu.Lock()
	h.turns = append(h.turns, turn)
	h.mu.Unlock()
	return turn
}

// All returns the turns in insertion order. The slice is a copy.
func (h *History) All() []model.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
