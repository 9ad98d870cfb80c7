package log

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Level is an alias for the zap log levels.
type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

// Field is an alias for zap.Field to keep zap out of the call sites.
type Field = zap.Field

var (
	String   = zap.String
	Bool     = zap.Bool
	Int      = zap.Int
	Int32    = zap.Int32
	Int64    = zap.Int64
	Uint     = zap.Uint
	Uint32   = zap.Uint32
	Uint64   = zap.Uint64
	Float32  = zap.Float32
	Float64  = zap.Float64
	Any      = zap.Any
	Duration = zap.Duration
	Time     = zap.Time

	ErrorField = zap.Error
)

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

type (
	Option interface {
		apply(*options)
	}
	options struct {
		zapOpts     []zap.Option
		filterRules string
	}
	optionFunc func(*options)
)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithCaller controls whether log entries are annotated with the caller.
func WithCaller(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.zapOpts = append(o.zapOpts, zap.WithCaller(enabled))
	})
}

// AddCallerSkip compensates the wrapper frames when resolving the caller.
func AddCallerSkip(skip int) Option {
	return optionFunc(func(o *options) {
		o.zapOpts = append(o.zapOpts, zap.AddCallerSkip(skip))
	})
}

// WithFilterRules attaches zapfilter rules (for example "debug:api.* info:*")
// to the logger. Invalid rules are ignored.
func WithFilterRules(rules string) Option {
	return optionFunc(func(o *options) {
		o.filterRules = rules
	})
}

// Logger is a thin wrapper around zap.Logger.
type Logger struct {
	l     *zap.Logger
	level Level
}

func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }

// Named creates a child logger with the given name segment appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

// New creates a logger with JSON output. This is the production format.
func New(output io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(output, level, zapcore.NewJSONEncoder(prodEncoderConfig()), opts...)
}

// DevLogger creates a logger with a human friendly console output.
func DevLogger(output io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(output, level, zapcore.NewConsoleEncoder(devEncoderConfig()), opts...)
}

//nolint:whitespace // can't make the linters happy
func newLogger(
	output io.Writer, level Level, enc zapcore.Encoder, opts ...Option,
) *Logger {
	o := &options{}
	for _, opt := range opts {
		opt.apply(o)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(output), level)
	if o.filterRules != "" {
		if rules, err := zapfilter.ParseRules(o.filterRules); err == nil {
			core = zapfilter.NewFilteringCore(core, rules)
		}
	}
	return &Logger{l: zap.New(core, o.zapOpts...), level: level}
}

func prodEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func devEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	return cfg
}

// default logger used by the package level functions
var std = New(os.Stderr, InfoLevel)

func Default() *Logger {
	return std
}

// ResetDefault replaces the default logger. Note: previously created named
// loggers keep their origin.
func ResetDefault(l *Logger) {
	std = l
}

func Debug(msg string, fields ...Field) { std.l.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { std.l.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { std.l.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { std.l.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { std.l.Fatal(msg, fields...) }

type ctxLoggerKey struct{}

// AddToContext stores the logger in the context.
func AddToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

// GetFromContext returns the logger stored in the context. If the context
// does not contain a logger the default logger is returned.
func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxLoggerKey{}).(*Logger); ok {
		return l
	}
	return std
}
