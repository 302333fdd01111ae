// Command docchat asks questions about one PDF from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gemini-playground/internal/ai"
	"gemini-playground/internal/app"
	"gemini-playground/internal/config"
	"gemini-playground/internal/pkg/doctype"
	"gemini-playground/internal/pkg/logger"
	"gemini-playground/internal/storage"
)

type options struct {
	env    string
	file   string
	usePro bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "docchat --env <dev|stg|prd> [--file path.pdf]",
		Short: "Ask questions about a single PDF document",
		Long: `docchat uploads one PDF document to Gemini and answers questions about it.

Type a question at the prompt. Type 'exit' or send end-of-input to quit.
Every question is answered independently; no conversation history is kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	rootCmd.Flags().StringVar(&opts.env, "env", "", "environment name (dev, stg, prd)")
	rootCmd.Flags().StringVar(&opts.file, "file", "", "PDF document to upload (default: batch.document_path)")
	rootCmd.Flags().BoolVar(&opts.usePro, "pro", false, "answer with gemini.model_pro instead of gemini.model_flash")
	_ = rootCmd.MarkFlagRequired("env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	env, err := config.ValidateEnvName(opts.env)
	if err != nil {
		return err
	}
	if err := config.LoadDotenv(env); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zlog, logFile, err := logger.New(logger.Options{
		Dir:      cfg.App.LogDir,
		Prefix:   "chat_sample",
		Timezone: cfg.App.Timezone,
		IsProd:   env == "prd",
	})
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()
	zlog.Info(fmt.Sprintf("Processing %s environment", env), zap.String("log_file", logFile))

	path := cfg.Batch.DocumentPath
	if opts.file != "" {
		path = opts.file
	}
	if _, err := doctype.Validate(path, doctype.BatchTypes); err != nil {
		zlog.Error("document rejected", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %w", storage.ErrInvalidLocalInput, err)
	}

	modelID := cfg.Gemini.ModelFlash
	if opts.usePro && cfg.Gemini.ModelPro != "" {
		modelID = cfg.Gemini.ModelPro
	}

	client := ai.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey)
	handle, err := client.NewHandle(modelID, "")
	if err != nil {
		return fmt.Errorf("create model handle failed: %w", err)
	}
	zlog.Info("model selected", zap.String("model", handle.ModelID()))

	driver, err := app.NewBatchDriver(ctx, handle, client, path, cfg.Batch.DisplayName, os.Stdin, os.Stdout, zlog)
	if err != nil {
		zlog.Error("upload failed", zap.Error(err))
		return err
	}
	return driver.Run(ctx)
}
