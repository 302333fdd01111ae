package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemini-playground/internal/model"
	"gemini-playground/internal/pkg/doctype"
	"gemini-playground/internal/session"
	"gemini-playground/internal/storage"
)

var ErrMessageEmpty = errors.New("message content is empty")

// TurnPublisher receives every turn appended to a session.
type TurnPublisher interface {
	Publish(ctx context.Context, record model.TurnRecord) error
}

type ModelSettings struct {
	PlainChatModel        string
	DocumentChatModel     string
	ChatSystemInstruction string
}

type ChatServiceConfig struct {
	Store        *session.Store
	Factory      session.HandleFactory
	Uploader     session.Uploader
	Uploads      *storage.UploadStore
	AllowedTypes []string
	Models       ModelSettings
	Publisher    TurnPublisher
	Logger       *zap.Logger
}

type ChatService struct {
	store        *session.Store
	factory      session.HandleFactory
	uploader     session.Uploader
	uploads      *storage.UploadStore
	allowedTypes []string
	models       ModelSettings
	publisher    TurnPublisher
	logger       *zap.Logger
}

type AttachResult struct {
	Document  model.RemoteDocumentRef `json:"document"`
	LocalPath string                  `json:"local_path,omitempty"`
	Duplicate bool                    `json:"duplicate"`
}

func NewChatService(cfg ChatServiceConfig) *ChatService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}
	if cfg.Store == nil {
		cfg.Store = session.NewStore(time.Hour)
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = doctype.WebTypes
	}
	return &ChatService{
		store:        cfg.Store,
		factory:      cfg.Factory,
		uploader:     cfg.Uploader,
		uploads:      cfg.Uploads,
		allowedTypes: cfg.AllowedTypes,
		models:       cfg.Models,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
	}
}

// NewSession creates an empty session with no mode selected and keeps it in the store.
func (s *ChatService) NewSession() *session.Session {
	sess := session.New(uuid.NewString(), s.factory, s.uploader, s.logger)
	s.store.Save(sess)
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess
}

func (s *ChatService) Session(id string) (*session.Session, bool) {
	return s.store.Get(id)
}

func (s *ChatService) SessionCount() int {
	return s.store.Count()
}

// SelectMode switches the page the session is on. Handles already created stay pinned.
func (s *ChatService) SelectMode(sess *session.Session, mode session.Mode) {
	sess.SetMode(mode)
	s.logger.Debug("mode selected", zap.String("session_id", sess.ID), zap.String("mode", mode.String()))
}

// ProcessTurn sends userText with the session's active mode and records both sides of the
// exchange. A failed generation leaves only the user turn behind.
func (s *ChatService) ProcessTurn(ctx context.Context, sess *session.Session, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", ErrMessageEmpty
	}

	var (
		reply string
		err   error
	)
	sess.Exclusive(func() {
		reply, err = s.processTurn(ctx, sess, userText)
	})
	return reply, err
}

func (s *ChatService) processTurn(ctx context.Context, sess *session.Session, userText string) (string, error) {
	mode := sess.Mode()
	if !sess.AcceptsInput() {
		return "", fmt.Errorf("%w (mode %s)", session.ErrInputNotAccepted, mode)
	}

	handle, err := sess.Handles.GetOrCreate(mode, s.modelFor(mode), s.instructionFor(mode))
	if err != nil {
		return "", fmt.Errorf("create model handle failed: %w", err)
	}

	log := s.logger.With(zap.String("session_id", sess.ID), zap.String("mode", mode.String()))
	log.Info("user prompt", zap.String("prompt", userText))
	s.record(ctx, sess, mode, sess.History.Append(model.RoleUser, userText))

	// once sent, a turn runs until the provider answers or fails
	callCtx := context.WithoutCancel(ctx)

	var reply string
	switch mode {
	case session.ModePlainChat:
		reply, err = handle.SendMessage(callCtx, userText)
	case session.ModeDocumentChat:
		req := model.NewDocumentRequest(sess.Registry.Refs(), userText)
		log.Debug("document request assembled", zap.Int("documents", len(req)-1))
		reply, err = handle.GenerateContent(callCtx, req)
	}
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", session.ErrGenerationFailed, err)
	}

	log.Debug("model response", zap.String("response", reply))
	s.record(ctx, sess, mode, sess.History.Append(model.RoleAssistant, reply))
	log.Debug("history updated", zap.Int("turns", sess.History.Len()))
	return reply, nil
}

// AttachDocument saves blob under filename and registers it with the provider. A name the
// session already knows is answered from the registry without saving or uploading.
func (s *ChatService) AttachDocument(ctx context.Context, sess *session.Session, blob io.Reader, filename string) (*AttachResult, error) {
	name := filepath.Base(strings.TrimSpace(filename))

	var (
		result *AttachResult
		err    error
	)
	sess.Exclusive(func() {
		result, err = s.attachDocument(ctx, sess, blob, name)
	})
	return result, err
}

func (s *ChatService) attachDocument(ctx context.Context, sess *session.Session, blob io.Reader, name string) (*AttachResult, error) {
	log := s.logger.With(zap.String("session_id", sess.ID), zap.String("document", name))

	if ref, ok := sess.Registry.Lookup(name); ok {
		log.Info("document already registered")
		return &AttachResult{Document: ref, Duplicate: true}, nil
	}

	path, err := s.uploads.Save(blob, name, func(tmpPath string) error {
		_, err := doctype.ValidateAs(tmpPath, name, s.allowedTypes)
		return err
	})
	if err != nil {
		return nil, err
	}

	ref, _, err := sess.Registry.RegisterIfAbsent(context.WithoutCancel(ctx), path, name)
	if err != nil {
		log.Error("document upload failed", zap.Error(err))
		return nil, err
	}
	log.Info("document uploaded", zap.String("uri", ref.URI), zap.String("path", path))
	return &AttachResult{Document: ref, LocalPath: path}, nil
}

func (s *ChatService) modelFor(mode session.Mode) string {
	if mode == session.ModeDocumentChat {
		return s.models.DocumentChatModel
	}
	return s.models.PlainChatModel
}

func (s *ChatService) instructionFor(mode session.Mode) string {
	if mode == session.ModePlainChat {
		return s.models.ChatSystemInstruction
	}
	return ""
}

func (s *ChatService) record(ctx context.Context, sess *session.Session, mode session.Mode, turn model.Turn) {
	err := s.publisher.Publish(ctx, model.TurnRecord{
		SessionID: sess.ID,
		Mode:      mode.String(),
		Role:      turn.Role,
		Content:   turn.Content,
		CreatedAt: turn.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("publish turn record failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.TurnRecord) error { return nil }
