package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			atomLevel,
		)
		logger = zap.New(core).Sugar()
	})
}

func SetLevel(l Level) {
	initLogger()
	atomLevel.SetLevel(toZapLevel(l))
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelDebug):
		return LevelDebug
	case string(LevelWarn), "WARNING":
		return LevelWarn
	case string(LevelError):
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, sanitizeKVs(kv)...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, sanitizeKVs(kv)...)
}

func Warn(msg string, kv ...any) {
	initLogger()
	logger.Warnw(msg, sanitizeKVs(kv)...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, sanitizeKVs(kv)...)
	logger.Errorw(msg, extended...)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	initLogger()
	_ = logger.Sync()
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// sanitizeKVs drops a trailing unpaired value and any pair whose key is not
// a string, so callers can never trigger zap's "ignored key" DPanic.
func sanitizeKVs(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, kv[i+1])
	}
	return out
}
