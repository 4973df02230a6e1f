package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Logger оборачивает zap.SugaredLogger.
// Поддерживает printf-стиль (Info, Debug) и ключ/значение (Infow, Errorw).
type Logger struct {
	*zap.SugaredLogger
	level LogLevel
}

// New creates a new Logger instance
func New(level LogLevel) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = level > DEBUG

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Конфигурация статическая, сюда попадаем только при проблемах с stdout
		base = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(cfg.EncoderConfig),
			zapcore.Lock(os.Stdout),
			cfg.Level,
		))
	}

	return &Logger{SugaredLogger: base.Sugar(), level: level}
}

// NewNop возвращает логгер, который ничего не пишет. Используется в тестах.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: FATAL}
}

// ParseLevel переводит строку из конфигурации в LogLevel
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Level возвращает уровень логирования
func (l *Logger) Level() LogLevel {
	return l.level
}

// Named возвращает дочерний логгер с именем компонента
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name), level: l.level}
}

// With возвращает дочерний логгер с постоянными полями
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), level: l.level}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.Debugf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.Infof(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.Warnf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.Errorf(format, v...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Fatalf(format, v...)
}

// Desugar возвращает базовый *zap.Logger для библиотек, которым он нужен
func (l *Logger) Desugar() *zap.Logger {
	return l.SugaredLogger.Desugar()
}
