package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"sanctions-risk-engine/internal/trace"
)

var (
	// Global logger instance; discards output until Init is called
	globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	// Log level controlled by environment variable
	logLevel slog.Level
	// Whether detailed logging is enabled
	detailedLogging bool
	// Flushes the zap core when the zap format is used
	syncFn func() error
)

// LogConfig holds logging configuration
type LogConfig struct {
	// DEBUG, INFO, WARN, ERROR
	Level string `envconfig:"LOG_LEVEL" default:"INFO"`
	// json, text or zap
	Format          string `envconfig:"LOG_FORMAT" default:"json"`
	DetailedLogging bool   `envconfig:"LOG_DETAILED" default:"false"`
	TracingEnabled  bool   `envconfig:"LOG_TRACING_ENABLED" default:"false"`
	// Fraction of report traces exported when tracing is enabled
	TraceSampleRatio float64 `envconfig:"LOG_TRACE_SAMPLE_RATIO" default:"1"`
	TracePretty      bool    `envconfig:"LOG_TRACE_PRETTY" default:"true"`
	// Output defaults to stdout; ignored by the zap format
	Output io.Writer `ignored:"true"`
}

// Init initializes the global logger and tracer based on environment variables
func Init() error {
	config, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}
	return InitWithConfig(config)
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() (LogConfig, error) {
	var config LogConfig
	if err := envconfig.Process("", &config); err != nil {
		return LogConfig{}, err
	}
	return config, nil
}

// InitWithConfig initializes the logger and tracer with specific configuration
func InitWithConfig(config LogConfig) error {
	logLevel = parseLogLevel(config.Level)
	detailedLogging = config.DetailedLogging
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	// Source is added manually in logWithTrace to get the correct caller location
	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: false,
	}

	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "zap":
		zl, err := newZap(logLevel)
		if err != nil {
			return err
		}
		handler = zapslog.NewHandler(zl.Core())
		syncFn = zl.Sync
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	if config.TracingEnabled {
		if err := trace.Init(trace.Config{
			Enabled:     true,
			SampleRatio: config.TraceSampleRatio,
			PrettyPrint: config.TracePretty,
		}); err != nil {
			globalLogger.Warn("Failed to initialize OpenTelemetry tracer, tracing disabled", "error", err)
		}
	}

	return nil
}

func newZap(level slog.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level / 4))
	return cfg.Build()
}

// Shutdown flushes buffered logs and shuts down the tracer provider
func Shutdown(ctx context.Context) error {
	if syncFn != nil {
		_ = syncFn()
	}
	return trace.Shutdown(ctx)
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getTraceAttrs extracts trace ID and span ID from context for logging
func getTraceAttrs(ctx context.Context) []any {
	traceID, spanID, ok := trace.GetTraceFields(ctx)
	if !ok {
		return nil
	}
	return []any{"trace_id", traceID, "span_id", spanID}
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelError, msg, 2, args...)
}

// ErrorWithErr logs an error message with an error object
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	errorWithErr(ctx, msg, err, 3, args...)
}

// DebugSkip is Debug for wrappers; skip is the number of extra frames between
// the caller of interest and this function.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

// InfoSkip is Info for wrappers
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2+skip, args...)
}

// WarnSkip is Warn for wrappers
func WarnSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2+skip, args...)
}

// ErrorWithErrSkip is ErrorWithErr for wrappers
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	errorWithErr(ctx, msg, err, 3+skip, args...)
}

func errorWithErr(ctx context.Context, msg string, err error, skip int, args ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}

	allArgs := append([]any{"error", err}, args...)
	logWithTrace(ctx, slog.LevelError, msg, skip, allArgs...)
}

// logWithTrace logs a message with trace ID and span ID if available
// skip parameter indicates how many stack frames to skip to get the actual caller
func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	if detailedLogging {
		// runtime.Caller -> logWithTrace -> wrapper (Debug/Info/etc) -> actual caller
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	globalLogger.Log(ctx, level, msg, args...)
}

// OperationTimer helps measure operation duration with OpenTelemetry spans
type OperationTimer struct {
	ctx    context.Context
	span   oteltrace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation with an OpenTelemetry span
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	var span oteltrace.Span
	if trace.Enabled() {
		ctx, span = trace.StartSpan(ctx, operation)
		span.SetAttributes(toAttributes(fields)...)
	}

	Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: fields,
	}
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) time.Duration {
	return ot.finish(nil, additionalFields)
}

// EndWithError completes the operation timer with an error, logged at error level
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) time.Duration {
	return ot.finish(err, additionalFields)
}

// Finish ends the timer with err's outcome but logs at debug level only, for
// callers that report the failure themselves
func (ot *OperationTimer) Finish(err error, additionalFields ...any) time.Duration {
	duration := ot.close(err, additionalFields)
	if err != nil {
		additionalFields = append(additionalFields, "error", err)
	}
	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	Debug(ot.ctx, "Operation finished", append(fields, additionalFields...)...)
	return duration
}

func (ot *OperationTimer) close(err error, additionalFields []any) time.Duration {
	duration := time.Since(ot.start)
	if ot.span != nil {
		ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		ot.span.SetAttributes(toAttributes(additionalFields)...)
		trace.Finish(ot.span, err)
	}
	return duration
}

func (ot *OperationTimer) finish(err error, additionalFields []any) time.Duration {
	duration := ot.close(err, additionalFields)
	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	if err == nil {
		Debug(ot.ctx, "Operation completed", append(fields, additionalFields...)...)
		return duration
	}
	fields = append(fields, "error", err)
	// logWithTrace <- finish <- End/EndWithError <- caller
	logWithTrace(ot.ctx, slog.LevelError, "Operation failed", 3, append(fields, additionalFields...)...)
	return duration
}

// GetContext returns the context with the span
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

// Screening logs a completed screening run at info level
func Screening(ctx context.Context, reportID string, transactions int, percentHighRisk float64, fields ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("screening_completed", oteltrace.WithAttributes(
				attribute.String("report_id", reportID),
				attribute.Int("transactions", transactions),
				attribute.Float64("percent_high_risk", percentHighRisk),
			))
		}
	}

	allFields := append([]any{
		"type", "SCREENING",
		"report_id", reportID,
		"transactions", transactions,
		"percent_high_risk", percentHighRisk,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Screening completed", 2, allFields...)
}

// Alert logs a compliance alert such as a breached high-risk threshold
func Alert(ctx context.Context, alertType string, fields ...any) {
	if trace.Enabled() {
		span := oteltrace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("compliance_alert", oteltrace.WithAttributes(
				attribute.String("alert_type", alertType),
			))
		}
	}

	allFields := append([]any{
		"type", "ALERT",
		"alert_type", alertType,
	}, fields...)
	logWithTrace(ctx, slog.LevelWarn, "Compliance alert", 2, allFields...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return detailedLogging
}
