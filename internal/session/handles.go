package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"gemini-playground/internal/model"
)

// ModelHandle is a reusable handle on a remote model bound to one model identifier
// and system instruction.
type ModelHandle interface {
	ModelID() string
	// SendMessage continues the handle's own dialogue with text.
	SendMessage(ctx context.Context, text string) (string, error)
	// GenerateContent sends req as a single stateless call.
	GenerateContent(ctx context.Context, req model.OutgoingRequest) (string, error)
}

// HandleFactory constructs a new handle. A failure is returned as-is to the caller.
type HandleFactory func(modelID, systemInstruction string) (ModelHandle, error)

// HandleProvider lazily creates one handle per mode and keeps it for the rest of the session.
type HandleProvider struct {
	factory HandleFactory
	logger  *zap.Logger

	mu      sync.Mutex
	handles map[Mode]ModelHandle
}

func NewHandleProvider(factory HandleFactory, logger *zap.Logger) *HandleProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HandleProvider{
		factory: factory,
		logger:  logger,
		handles: make(map[Mode]ModelHandle),
	}
}

// GetOrCreate returns the handle pinned to mode, creating it on first use.
// Once a handle exists, modelID and systemInstruction are ignored.
func (p *HandleProvider) GetOrCreate(mode Mode, modelID, systemInstruction string) (ModelHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle, ok := p.handles[mode]; ok {
		if modelID != "" && handle.ModelID() != modelID {
			p.logger.Warn("model handle already pinned, requested model ignored",
				zap.String("mode", mode.String()),
				zap.String("pinned_model", handle.ModelID()),
				zap.String("requested_model", modelID),
			)
		}
		return handle, nil
	}

	handle, err := p.factory(modelID, systemInstruction)
	if err != nil {
		return nil, err
	}
	p.handles[mode] = handle
	p.logger.Debug("model handle created",
		zap.String("mode", mode.String()),
		zap.String("model", modelID),
	)
	return handle, nil
}

// Ready reports whether a handle has been created for mode.
func (p *HandleProvider) Ready(mode Mode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handles[mode]
	return ok
}
