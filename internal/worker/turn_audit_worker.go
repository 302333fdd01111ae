package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"gemini-playground/internal/model"
)

var ErrInvalidTurnRecord = errors.New("invalid turn record")

// TurnRecordWriter persists one audit row.
type TurnRecordWriter interface {
	Create(record *model.TurnRecord) error
}

// TurnAuditWorker drains the audit queue into MySQL. Nothing reads the rows back into a session.
type TurnAuditWorker struct {
	conn      *amqp.Connection
	repo      TurnRecordWriter
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnAuditWorker(conn *amqp.Connection, repo TurnRecordWriter, queueName string, logger *zap.Logger) *TurnAuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnAuditWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With(zap.String("queue", queueName)),
	}
}

func (w *TurnAuditWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("audit deliveries closed")
					return
				}
				if err := w.Handle(d.Body); err != nil {
					w.logger.Error("audit turn failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("audit worker started")
	return nil
}

// Handle decodes one queued payload and writes it.
func (w *TurnAuditWorker) Handle(body []byte) error {
	var record model.TurnRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return fmt.Errorf("decode turn record failed: %w", err)
	}
	if strings.TrimSpace(record.SessionID) == "" || record.Role == "" {
		return fmt.Errorf("%w: session_id and role are required", ErrInvalidTurnRecord)
	}
	record.ID = 0

	if err := w.repo.Create(&record); err != nil {
		return fmt.Errorf("persist turn record failed: %w", err)
	}
	return nil
}

func (w *TurnAuditWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
