package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir      string
	Prefix   string
	Timezone string
	IsProd   bool
}

// New builds a logger writing DEBUG and above as JSON to a rotated file
// <Dir>/<Prefix>_<yyyymmddHHMMSS>.log and INFO and above to stdout.
func New(opts Options) (*zap.Logger, string, error) {
	if opts.Dir == "" {
		opts.Dir = "./logs"
	}
	if opts.Prefix == "" {
		opts.Prefix = "chat_sample"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log dir failed: %w", err)
	}

	logFile := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", opts.Prefix, Timestamp(time.Now(), opts.Timezone)))
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zap.DebugLevel)

	var consoleEncoder zapcore.Encoder
	if opts.IsProd {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.InfoLevel)

	return zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller()), logFile, nil
}

// Timestamp formats t as yyyymmddHHMMSS in the named zone, falling back to local time.
func Timestamp(t time.Time, timezone string) string {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			t = t.In(loc)
		}
	}
	return t.Format("20060102150405")
}
