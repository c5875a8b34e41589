package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// S is the process-wide sugared logger, nil until Init.
var S *zap.SugaredLogger

// base backs the *Obj helpers so they skip re-desugaring on every call.
var base *zap.Logger

// Init logs JSON to stderr at logLevel. Stdout is kept for command output.
func Init(logLevel string) (*zap.SugaredLogger, error) {
	return InitWithWriter(logLevel, os.Stderr)
}

// InitWithWriter is Init with a custom destination.
func InitWithWriter(logLevel string, w io.Writer) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		parseLevel(logLevel),
	)

	base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	S = base.WithOptions(zap.AddCallerSkip(-1)).Sugar()
	return S, nil
}

func parseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close flushes buffered entries.
func Close() error {
	if base == nil {
		return nil
	}
	return base.Sync()
}

// The *Obj helpers log obj as one structured field named key. They are
// no-ops before Init.

func InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

func logObj(level zapcore.Level, msg, key string, obj interface{}) {
	if base == nil {
		return
	}
	if ce := base.Check(level, msg); ce != nil {
		ce.Write(zap.Any(key, obj))
	}
}

// Redact keeps the last four characters of a secret for correlation.
func Redact(secret string) string {
	const keep = 4
	if len(secret) <= keep*2 {
		return strings.Repeat("*", len(secret))
	}
	return "***" + secret[len(secret)-keep:]
}

// Logger is the structured logging surface handed to pkg/ libraries.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// ZapLogger writes to the package-level logger. Its methods call logObj
// directly so the reported caller is the code using the Logger.
type ZapLogger struct{}

func (ZapLogger) InfoObj(msg, key string, obj interface{}) {
	logObj(zapcore.InfoLevel, msg, key, obj)
}

func (ZapLogger) DebugObj(msg, key string, obj interface{}) {
	logObj(zapcore.DebugLevel, msg, key, obj)
}

func (ZapLogger) WarnObj(msg, key string, obj interface{}) {
	logObj(zapcore.WarnLevel, msg, key, obj)
}

func (ZapLogger) ErrorObj(msg, key string, obj interface{}) {
	logObj(zapcore.ErrorLevel, msg, key, obj)
}

type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}
