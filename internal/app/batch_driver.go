package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"gemini-playground/internal/model"
	"gemini-playground/internal/session"
)

const (
	ExitCommand  = "exit"
	promptText   = "Please enter your question : "
	answerHeader = "Answer : "
)

// BatchDriver answers questions about a single document read line by line from a terminal.
// It keeps no history; every question is sent with the document in one stateless call.
type BatchDriver struct {
	handle session.ModelHandle
	ref    model.RemoteDocumentRef
	in     *bufio.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewBatchDriver uploads localPath once and returns a driver bound to the resulting reference.
func NewBatchDriver(
	ctx context.Context,
	handle session.ModelHandle,
	uploader session.Uploader,
	localPath string,
	displayName string,
	in io.Reader,
	out io.Writer,
	logger *zap.Logger,
) (*BatchDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ref, err := uploader.UploadFile(ctx, localPath, displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrUploadFailed, err)
	}
	logger.Info(fmt.Sprintf("Uploaded file '%s' as: %s", ref.DisplayName, ref.URI))

	return &BatchDriver{
		handle: handle,
		ref:    ref,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}, nil
}

func (d *BatchDriver) Document() model.RemoteDocumentRef {
	return d.ref
}

// Run reads questions until the exit command or end of input.
func (d *BatchDriver) Run(ctx context.Context) error {
	for {
		fmt.Fprint(d.out, promptText)

		line, readErr := d.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read question failed: %w", readErr)
		}
		message := strings.TrimRight(line, "\r\n")

		if message == ExitCommand {
			d.logger.Info("Process terminated.")
			return nil
		}
		if readErr != nil && message == "" {
			fmt.Fprintln(d.out)
			d.logger.Info("Process terminated.")
			return nil
		}

		if strings.TrimSpace(message) != "" {
			d.answer(ctx, message)
		}
		if readErr != nil {
			d.logger.Info("Process terminated.")
			return nil
		}
	}
}

// Ask sends [document, question] as one request.
func (d *BatchDriver) Ask(ctx context.Context, question string) (string, error) {
	req := model.NewDocumentRequest([]model.RemoteDocumentRef{d.ref}, question)
	answer, err := d.handle.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", session.ErrGenerationFailed, err)
	}
	return answer, nil
}

func (d *BatchDriver) answer(ctx context.Context, question string) {
	d.logger.Debug("question", zap.String("prompt", question))
	answer, err := d.Ask(ctx, question)
	if err != nil {
		d.logger.Error("answer failed", zap.Error(err))
		fmt.Fprintf(d.out, "Error : %v\n", err)
		return
	}
	fmt.Fprintln(d.out, answerHeader)
	fmt.Fprintln(d.out, answer)
}
