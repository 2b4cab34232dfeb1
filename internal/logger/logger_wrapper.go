package logger

import (
	"time"

	"github.com/leandrodaf/midibridge/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the contracts.Logger implementation backed by Uber's zap.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel // Shared with the core so SetLevel takes effect immediately.
	config zap.Config      // Kept to rebuild the core on SetDestination.
}

// NewZapLogger creates a production zap logger writing JSON to stderr.
func NewZapLogger() contracts.Logger {
	return newFromConfig(zap.NewProductionConfig())
}

// NewDevelopmentLogger creates a human readable console logger, used by the CLI.
func NewDevelopmentLogger() contracts.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return newFromConfig(cfg)
}

// FromZap wraps an existing zap logger. Level filtering is left to the
// logger's own core; SetLevel only adds a further threshold.
func FromZap(l *zap.Logger) contracts.Logger {
	// IncreaseLevel rejects thresholds below what the core already enables.
	lowest := zapcore.DebugLevel
	for lowest < zapcore.FatalLevel && !l.Core().Enabled(lowest) {
		lowest++
	}
	level := zap.NewAtomicLevelAt(lowest)
	return &ZapLogger{
		logger: l.WithOptions(zap.AddCallerSkip(1), zap.IncreaseLevel(level)),
		level:  level,
		config: zap.NewProductionConfig(),
	}
}

func newFromConfig(cfg zap.Config) *ZapLogger {
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return &ZapLogger{logger: l, level: cfg.Level, config: cfg}
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.logger.Info(msg, toZap(fields)...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.logger.Error(msg, toZap(fields)...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.logger.Debug(msg, toZap(fields)...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.logger.Warn(msg, toZap(fields)...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.logger.Fatal(msg, toZap(fields)...)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(zapcore.Level(level))
}

// SetDestination switches the output to the console or appends a file.
// Without a path, FileLog is ignored.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	cfg := z.config
	cfg.Level = z.level
	switch dest {
	case contracts.ConsoleLog:
		cfg.OutputPaths = []string{"stderr"}
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			z.logger.Warn("file destination requested without a path")
			return
		}
		cfg.OutputPaths = append([]string{"stderr"}, filePath[0])
	default:
		return
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z.logger.Error("failed to switch log destination", zap.Error(err))
		return
	}
	_ = z.logger.Sync()
	z.logger = l
	z.config = cfg
}

// toZap converts contract fields into native zap fields, skipping foreign implementations.
func toZap(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok && f.key != "" {
			out = append(out, f.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	key   string
	field zap.Field
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return &zapField{key, zap.Bool(key, val)}
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return &zapField{key, zap.Int(key, val)}
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return &zapField{key, zap.Float64(key, val)}
}

func (f *zapField) String(key string, val string) contracts.Field {
	return &zapField{key, zap.String(key, val)}
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return &zapField{key, zap.Time(key, val)}
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return &zapField{key, zap.Int64(key, val)}
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return &zapField{key, zap.NamedError(key, val)}
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return &zapField{key, zap.Uint64(key, val)}
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return &zapField{key, zap.Uint8(key, val)}
}

func (f *zapField) Duration(key string, val time.Duration) contracts.Field {
	return &zapField{key, zap.Duration(key, val)}
}
