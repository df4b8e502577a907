// Package observability provides structured logging, metrics, and tracing
// for the gateway: provider dispatch, OLAP query execution, and dataset
// materialization all emit through this package rather than raw fmt/log.
package observability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps slog with request correlation and secret redaction.
//
// Gateway log lines regularly carry raw_request/raw_response text and
// provider errors, both of which can contain API keys; every value passed
// through Logger is redacted before it reaches the underlying handler.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// LogConfig configures the logging behavior.
type LogConfig struct {
	Level          string    // "debug", "info", "warn", "error"
	Format         string    // "json" or "text"
	Output         io.Writer // defaults to os.Stdout
	AddSource      bool
	RedactPatterns []string // extra patterns, merged with DefaultRedactPatterns
}

// ContextKey is the type for context keys used in logging correlation.
type ContextKey string

const (
	RequestIDKey    ContextKey = "request_id"
	InferenceIDKey  ContextKey = "inference_id"
	EpisodeIDKey    ContextKey = "episode_id"
	ProviderKey     ContextKey = "provider"
	FunctionNameKey ContextKey = "function_name"
)

// DefaultRedactPatterns covers the credential shapes this gateway's
// providers emit: vendor bearer tokens in raw_request dumps, generic
// secret=value pairs, and JWTs that might ride along in extra_headers.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["\']?([a-zA-Z0-9_\-]{16,})["\']?`,
	`(?i)(bearer|x-api-key)[\s:]+([a-zA-Z0-9_\-\.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["\']?([^\s"']{8,})["\']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`,
}

// NewLogger creates a structured logger. Defaults: Output=os.Stdout,
// Level="info", Format="json".
func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "json"
	}

	opts := &slog.HandlerOptions{Level: LogLevelFromString(config.Level), AddSource: config.AddSource}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(DefaultRedactPatterns)+len(config.RedactPatterns))
	for _, pattern := range append(append([]string{}, DefaultRedactPatterns...), config.RedactPatterns...) {
		if re, err := regexp.Compile(pattern); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: redacts}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelDebug, msg, args...) }
func (l *Logger) Info(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(ctx context.Context, msg string, args ...any)  { l.log(ctx, slog.LevelWarn, msg, args...) }
func (l *Logger) Error(ctx context.Context, msg string, args ...any) { l.log(ctx, slog.LevelError, msg, args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	msg = l.redactString(msg)

	redacted := make([]any, len(args))
	for i, a := range args {
		redacted[i] = l.redactValue(a)
	}

	attrs := make([]any, 0, len(redacted)+8)
	for _, kv := range []struct {
		key ContextKey
		tag string
	}{
		{RequestIDKey, "request_id"},
		{InferenceIDKey, "inference_id"},
		{EpisodeIDKey, "episode_id"},
		{ProviderKey, "provider"},
		{FunctionNameKey, "function_name"},
	} {
		if v, ok := ctx.Value(kv.key).(string); ok && v != "" {
			attrs = append(attrs, kv.tag, v)
		}
	}
	attrs = append(attrs, redacted...)

	l.logger.Log(ctx, level, msg, attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	case []byte:
		return l.redactString(string(val))
	default:
		if b, err := json.Marshal(v); err == nil {
			return l.redactString(string(b))
		}
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// WithFields returns a logger with the given fields attached to every record.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

// WithContext bakes well-known correlation fields from ctx into the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := make([]any, 0, 4)
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v, ok := ctx.Value(InferenceIDKey).(string); ok && v != "" {
		attrs = append(attrs, "inference_id", v)
	}
	if v, ok := ctx.Value(ProviderKey).(string); ok && v != "" {
		attrs = append(attrs, "provider", v)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.WithFields(attrs...)
}

// LogLevelFromString converts a string to a slog.Level, defaulting to info.
func LogLevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AddRequestID attaches a request ID to the context for log correlation.
func AddRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// AddInferenceID attaches an inference ID to the context for log correlation.
func AddInferenceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InferenceIDKey, id)
}

// AddProvider attaches the provider name to the context for log correlation.
func AddProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}
