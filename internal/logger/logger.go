package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // file path or "stderr"
}

type ctxKey int

const (
	submissionIDKey ctxKey = iota
	workspaceIDKey
)

// New creates a zap logger and a func that releases its output. Logs
// default to stderr because stdout carries the JSON report.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}
	writeSyncer, closeOutput, err := zap.Open(output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	cleanup := func() {
		_ = l.Sync()
		closeOutput()
	}
	return l, cleanup, nil
}

// customTimeEncoder formats time in RFC3339 format
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(time.RFC3339))
}

// WithSubmission tags ctx with the submission being graded.
func WithSubmission(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey, id)
}

// WithWorkspace tags ctx with the workspace of the current call.
func WithWorkspace(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workspaceIDKey, id)
}

// SubmissionID returns the submission id stored in ctx, if any.
func SubmissionID(ctx context.Context) string {
	id, _ := ctx.Value(submissionIDKey).(string)
	return id
}

// For returns l with the structured fields carried by ctx.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	var fields []zap.Field
	if id, ok := ctx.Value(submissionIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String("submission_id", id))
	}
	if id, ok := ctx.Value(workspaceIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String("workspace_id", id))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
