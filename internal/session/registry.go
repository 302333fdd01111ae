package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gemini-playground/internal/model"
)

// Uploader sends a local file to the model provider and returns the provider-side reference.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, displayName string) (model.RemoteDocumentRef, error)
}

// Registry keeps the documents uploaded during a session, deduplicated by display name
// and ordered by first registration.
type Registry struct {
	uploader Uploader

	registerMu sync.Mutex
	mu         sync.RWMutex
	refs       []model.RemoteDocumentRef
	index      map[string]int
}

func NewRegistry(uploader Uploader) *Registry {
	return &Registry{
		uploader: uploader,
		index:    make(map[string]int),
	}
}

// RegisterIfAbsent uploads localPath unless displayName is already known, in which case
// the existing reference is returned and no remote call is made.
func (r *Registry) RegisterIfAbsent(ctx context.Context, localPath, displayName string) (model.RemoteDocumentRef, bool, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return model.RemoteDocumentRef{}, false, fmt.Errorf("%w: display name is empty", ErrUploadFailed)
	}

	r.registerMu.Lock()
	defer r.registerMu.Unlock()

	if ref, ok := r.Lookup(displayName); ok {
		return ref, false, nil
	}

	ref, err := r.uploader.UploadFile(ctx, localPath, displayName)
	if err != nil {
		return model.RemoteDocumentRef{}, false, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if ref.URI == "" {
		return model.RemoteDocumentRef{}, false, fmt.Errorf("%w: provider returned no uri for %q", ErrUploadFailed, displayName)
	}
	ref.DisplayName = displayName

	// ref and name are recorded together under one lock
	r.mu.Lock()
	r.index[displayName] = len(r.refs)
	r.refs = append(r.refs, ref)
	r.mu.Unlock()
	return ref, true, nil
}

// Lookup finds a reference by display name, ignoring surrounding whitespace.
func (r *Registry) Lookup(displayName string) (model.RemoteDocumentRef, bool) {
	displayName = strings.TrimSpace(displayName)
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[displayName]
	if !ok {
		return model.RemoteDocumentRef{}, false
	}
	return r.refs[i], true
}

// Refs returns the references in registration order.
func (r *Registry) Refs() []model.RemoteDocumentRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.RemoteDocumentRef, len(r.refs))
	copy(out, r.refs)
	return out
}

// Names returns the known display names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.refs))
	for i, ref := range r.refs {
		names[i] = ref.DisplayName
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
