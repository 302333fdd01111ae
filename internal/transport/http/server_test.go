package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-playground/internal/app"
	"gemini-playground/internal/bootstrap"
	"gemini-playground/internal/config"
	"gemini-playground/internal/model"
	"gemini-playground/internal/pkg/jwtutil"
	"gemini-playground/internal/session"
	"gemini-playground/internal/storage"
	"gemini-playground/internal/transport/http/response"
)

const testSecret = "test-secret"

type stubHandle struct {
	modelID string
	err     error

	mu       sync.Mutex
	requests []model.OutgoingRequest
}

func (h *stubHandle) ModelID() string { return h.modelID }

func (h *stubHandle) SendMessage(ctx context.Context, text string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "reply to " + text, nil
}

func (h *stubHandle) GenerateContent(ctx context.Context, req model.OutgoingRequest) (string, error) {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	return "answer with documents", nil
}

type stubUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *stubUploader) UploadFile(ctx context.Context, localPath, displayName string) (model.RemoteDocumentRef, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return model.RemoteDocumentRef{}, u.err
	}
	return model.RemoteDocumentRef{DisplayName: displayName, URI: "files/" + displayName, MIMEType: "text/plain"}, nil
}

type testServer struct {
	router   *gin.Engine
	handle   *stubHandle
	uploader *stubUploader
}

func newTestServer(t *testing.T, handleErr, uploadErr error) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:     config.AppConfig{Name: "gemini-playground", Env: "dev", GinMode: gin.TestMode},
		Pages:   config.PagesConfig{Title: "Gemini Playground", PageChat: "Gemini Chat", PageDocumentChat: "Document Chat"},
		Upload:  config.UploadConfig{UploadPath: t.TempDir(), MaxSizeMB: 1},
		Session: config.SessionConfig{JWTSecret: testSecret, TTLMinutes: 5},
	}

	handle := &stubHandle{modelID: "gemini-1.5-flash", err: handleErr}
	uploader := &stubUploader{err: uploadErr}
	chat := app.NewChatService(app.ChatServiceConfig{
		Store: session.NewStore(5 * time.Minute),
		Factory: func(modelID, systemInstruction string) (session.ModelHandle, error) {
			return handle, nil
		},
		Uploader: uploader,
		Uploads:  storage.NewUploadStore(cfg.Upload.UploadPath),
		Models:   app.ModelSettings{PlainChatModel: "gemini-1.5-flash", DocumentChatModel: "gemini-1.5-flash"},
	})

	application := &bootstrap.App{Config: cfg, Chat: chat, StartedAt: time.Now()}
	return &testServer{router: NewRouter(application), handle: handle, uploader: uploader}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, payload any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, path, token, bytes.NewReader(raw), "application/json")
}

func (s *testServer) upload(t *testing.T, token, filename string, content []byte) (int, envelope) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, nethttp.MethodPost, "/api/v1/documents", token, buf, mw.FormDataContentType())
}

func (s *testServer) newSession(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, nethttp.MethodPost, "/api/v1/sessions", "", nil, "")
	require.Equal(t, nethttp.StatusOK, status)

	var data struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.SessionID)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type pagesData struct {
	ActiveMode   string `json:"active_mode"`
	AcceptsInput bool   `json:"accepts_input"`
	Documents    int    `json:"documents"`
	Pages        []struct {
		Mode  string `json:"mode"`
		Label string `json:"label"`
		Ready bool   `json:"ready"`
	} `json:"pages"`
}

func TestPlainChatFlow(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	token := srv.newSession(t)

	status, env := srv.do(t, nethttp.MethodGet, "/api/v1/pages", token, nil, "")
	require.Equal(t, nethttp.StatusOK, status)
	pages := decode[pagesData](t, env.Data)
	assert.Equal(t, "none", pages.ActiveMode)
	assert.False(t, pages.AcceptsInput)
	require.Len(t, pages.Pages, 2)
	assert.Equal(t, "Gemini Chat", pages.Pages[0].Label)

	status, env = srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", token, gin.H{"content": "hello"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, response.CodeInputNotAccepted, env.Code)

	status, env = srv.doJSON(t, nethttp.MethodPut, "/api/v1/mode", token, gin.H{"mode": "chat"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.True(t, decode[pagesData](t, env.Data).AcceptsInput)

	status, env = srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", token, gin.H{"content": "hello"})
	require.Equal(t, nethttp.StatusOK, status)
	reply := decode[struct {
		Reply      string `json:"reply"`
		HistoryLen int    `json:"history_len"`
	}](t, env.Data)
	assert.Equal(t, "reply to hello", reply.Reply)
	assert.Equal(t, 2, reply.HistoryLen)

	status, env = srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", token, nil, "")
	require.Equal(t, nethttp.StatusOK, status)
	history := decode[struct {
		Turns []model.Turn `json:"turns"`
	}](t, env.Data)
	require.Len(t, history.Turns, 2)
	assert.Equal(t, model.RoleUser, history.Turns[0].Role)
	assert.Equal(t, "reply to hello", history.Turns[1].Content)
}

func TestDocumentChatFlow(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	token := srv.newSession(t)

	status, _ := srv.doJSON(t, nethttp.MethodPut, "/api/v1/mode", token, gin.H{"mode": "document_chat"})
	require.Equal(t, nethttp.StatusOK, status)

	status, env := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", token, gin.H{"content": "summarize"})
	assert.Equal(t, nethttp.StatusConflict, status, "no document registered yet")
	assert.Equal(t, response.CodeInputNotAccepted, env.Code)

	content := []byte("quarterly report: revenue grew in every region\n")
	status, env = srv.upload(t, token, "report.txt", content)
	require.Equal(t, nethttp.StatusOK, status, env.Message)
	first := decode[struct {
		Document  model.RemoteDocumentRef `json:"document"`
		SavedPath string                  `json:"saved_path"`
		Duplicate bool                    `json:"duplicate"`
	}](t, env.Data)
	assert.Equal(t, "files/report.txt", first.Document.URI)
	assert.NotEmpty(t, first.SavedPath)
	assert.False(t, first.Duplicate)

	status, env = srv.upload(t, token, "report.txt", content)
	require.Equal(t, nethttp.StatusOK, status)
	assert.True(t, decode[struct {
		Duplicate bool `json:"duplicate"`
	}](t, env.Data).Duplicate)
	assert.Equal(t, 1, srv.uploader.calls)

	status, env = srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", token, gin.H{"content": "summarize"})
	require.Equal(t, nethttp.StatusOK, status)
	require.Len(t, srv.handle.requests, 1)
	assert.Equal(t, model.OutgoingRequest{
		model.DocumentItem{Ref: first.Document},
		model.TextItem{Text: "summarize"},
	}, srv.handle.requests[0])

	status, env = srv.do(t, nethttp.MethodGet, "/api/v1/documents", token, nil, "")
	require.Equal(t, nethttp.StatusOK, status)
	docs := decode[struct {
		Documents []model.RemoteDocumentRef `json:"documents"`
	}](t, env.Data)
	assert.Len(t, docs.Documents, 1)
}

func TestSessionAuth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	status, env := srv.do(t, nethttp.MethodGet, "/api/v1/pages", "", nil, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, env.Code)

	status, _ = srv.do(t, nethttp.MethodGet, "/api/v1/pages", "not-a-token", nil, "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	orphan, err := jwtutil.GenerateToken(testSecret, "no-such-session", time.Minute)
	require.NoError(t, err)
	status, env = srv.do(t, nethttp.MethodGet, "/api/v1/pages", orphan, nil, "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, response.CodeSessionNotFound, env.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	alice := srv.newSession(t)
	bob := srv.newSession(t)

	srv.doJSON(t, nethttp.MethodPut, "/api/v1/mode", alice, gin.H{"mode": "chat"})
	status, _ := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", alice, gin.H{"content": "hi"})
	require.Equal(t, nethttp.StatusOK, status)

	_, env := srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", bob, nil, "")
	history := decode[struct {
		Turns []model.Turn `json:"turns"`
	}](t, env.Data)
	assert.Empty(t, history.Turns)
}

func TestGenerationFailureKeepsUserTurn(t *testing.T) {
	srv := newTestServer(t, errors.New("quota exceeded"), nil)
	token := srv.newSession(t)
	srv.doJSON(t, nethttp.MethodPut, "/api/v1/mode", token, gin.H{"mode": "chat"})

	status, env := srv.doJSON(t, nethttp.MethodPost, "/api/v1/chat/messages", token, gin.H{"content": "hello"})
	assert.Equal(t, nethttp.StatusBadGateway, status)
	assert.Equal(t, response.CodeGenerationFailed, env.Code)

	_, env = srv.do(t, nethttp.MethodGet, "/api/v1/chat/history", token, nil, "")
	history := decode[struct {
		Turns []model.Turn `json:"turns"`
	}](t, env.Data)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, model.RoleUser, history.Turns[0].Role)
}

func TestDocumentUploadErrors(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		srv := newTestServer(t, nil, errors.New("503 unavailable"))
		token := srv.newSession(t)

		status, env := srv.upload(t, token, "notes.txt", []byte("plain text notes\n"))
		assert.Equal(t, nethttp.StatusBadGateway, status)
		assert.Equal(t, response.CodeUploadFailed, env.Code)

		_, env = srv.do(t, nethttp.MethodGet, "/api/v1/pages", token, nil, "")
		assert.Zero(t, decode[pagesData](t, env.Data).Documents)
	})

	t.Run("unsupported type", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		token := srv.newSession(t)

		status, env := srv.upload(t, token, "tool.exe", []byte("MZ\x90\x00"))
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, response.CodeInvalidDocument, env.Code)
		assert.Zero(t, srv.uploader.calls)
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)
		token := srv.newSession(t)

		status, env := srv.doJSON(t, nethttp.MethodPost, "/api/v1/documents", token, gin.H{})
		assert.Equal(t, nethttp.StatusBadRequest, status)
		assert.Equal(t, response.CodeBadRequest, env.Code)
	})
}

func TestSelectUnknownMode(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	token := srv.newSession(t)

	status, env := srv.doJSON(t, nethttp.MethodPut, "/api/v1/mode", token, gin.H{"mode": "vision"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, response.CodeUnknownMode, env.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	srv.newSession(t)

	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, nethttp.StatusOK, rec.Code)
	var body struct {
		App      string `json:"app"`
		Sessions int    `json:"sessions"`
		Audit    bool   `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gemini-playground", body.App)
	assert.Equal(t, 1, body.Sessions)
	assert.False(t, body.Audit)
}
