package session

import (
	"context"
	"errors"
	"sync"

	"gemini-playground/internal/model"
)

type stubHandle struct {
	modelID     string
	instruction string
}

func (h *stubHandle) ModelID() string { return h.modelID }

func (h *stubHandle) SendMessage(ctx context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

func (h *stubHandle) GenerateContent(ctx context.Context, req model.OutgoingRequest) (string, error) {
	return "generated", nil
}

type recordingUploader struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (u *recordingUploader) UploadFile(ctx context.Context, localPath, displayName string) (model.RemoteDocumentRef, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, displayName)
	if u.fail[displayName] {
		return model.RemoteDocumentRef{}, errors.New("provider rejected file")
	}
	return model.RemoteDocumentRef{
		DisplayName: displayName,
		URI:         "https://files.example/" + displayName,
		MIMEType:    "application/pdf",
	}, nil
}
