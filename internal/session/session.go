package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session holds everything one user accumulates: the active mode, one model handle per
// mode, the uploaded documents and the conversation history. Sessions share nothing.
type Session struct {
	ID        string
	CreatedAt time.Time

	Handles  *HandleProvider
	Registry *Registry
	History  *History

	// turnMu serializes turn processing and document registration.
	turnMu sync.Mutex

	mu   sync.RWMutex
	mode Mode
}

func New(id string, factory HandleFactory, uploader Uploader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Handles:   NewHandleProvider(factory, logger.With(zap.String("session_id", id))),
		Registry:  NewRegistry(uploader),
		History:   NewHistory(),
	}
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Ready reports whether mode has left the Uninitialized state.
func (s *Session) Ready(mode Mode) bool {
	return s.Handles.Ready(mode)
}

// AcceptsInput reports whether a prompt may be offered: a mode is selected and,
// for document chat, at least one document is registered.
func (s *Session) AcceptsInput() bool {
	switch s.Mode() {
	case ModePlainChat:
		return true
	case ModeDocumentChat:
		return s.Registry.Len() > 0
	default:
		return false
	}
}

// Exclusive runs fn while holding the session's turn lock.
func (s *Session) Exclusive(fn func()) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	fn()
}
