package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gemini-playground/internal/ai"
	"gemini-playground/internal/app"
	"gemini-playground/internal/config"
	"gemini-playground/internal/model"
	"gemini-playground/internal/pkg/doctype"
	mysqlClient "gemini-playground/internal/platform/mysql"
	rabbitmqClient "gemini-playground/internal/platform/rabbitmq"
	"gemini-playground/internal/repository"
	"gemini-playground/internal/session"
	"gemini-playground/internal/storage"
	"gemini-playground/internal/worker"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	LogFile string

	Gemini  *ai.Client
	Uploads *storage.UploadStore
	Chat    *app.ChatService

	MySQL       *gorm.DB
	MQConn      *amqp.Connection
	AuditWorker *worker.TurnAuditWorker

	StartedAt time.Time
}

// New wires the web application from cfg. MySQL and RabbitMQ are only dialed when the
// audit trail is enabled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Gemini:    ai.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey),
		Uploads:   storage.NewUploadStore(cfg.Upload.UploadPath),
		StartedAt: time.Now(),
	}

	var publisher app.TurnPublisher
	if cfg.Audit.Enabled {
		p, err := a.startAudit(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		publisher = p
	}

	a.Chat = app.NewChatService(app.ChatServiceConfig{
		Store:        session.NewStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute),
		Factory:      HandleFactory(a.Gemini),
		Uploader:     a.Gemini,
		Uploads:      a.Uploads,
		AllowedTypes: doctype.WebTypes,
		Models: app.ModelSettings{
			PlainChatModel:        cfg.Gemini.ModelFlash,
			DocumentChatModel:     cfg.Gemini.ModelFlash,
			ChatSystemInstruction: cfg.Gemini.ChatSystemInstruction,
		},
		Publisher: publisher,
		Logger:    logger,
	})
	return a, nil
}

// HandleFactory adapts the Gemini client to the session handle factory.
func HandleFactory(client *ai.Client) session.HandleFactory {
	return func(modelID, systemInstruction string) (session.ModelHandle, error) {
		m, err := client.NewHandle(modelID, systemInstruction)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (a *App) startAudit(ctx context.Context) (app.TurnPublisher, error) {
	cfg := a.Config.Audit

	mysqlDB, err := mysqlClient.New(ctx, a.Config.MySQLDSN())
	if err != nil {
		return nil, err
	}
	a.MySQL = mysqlDB
	if err := mysqlDB.AutoMigrate(&model.TurnRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.MQConn = mqConn

	repo := repository.NewTurnRecordRepository(mysqlDB)
	auditWorker := worker.NewTurnAuditWorker(mqConn, repo, cfg.RabbitMQ.Queue, a.Logger)
	if err := auditWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start audit worker failed: %w", err)
	}
	a.AuditWorker = auditWorker

	a.Logger.Info("audit trail enabled", zap.String("queue", cfg.RabbitMQ.Queue))
	return rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.Queue), nil
}

func (a *App) Close() error {
	var closeErr error
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
