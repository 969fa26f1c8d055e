package xlog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrecycle/lib/infra"
)

var _ XLogger = (*xLogger)(nil)

type xLogger struct {
	logger  atomic.Pointer[zap.Logger]
	level   zapcore.Level
	writer  LogOutWriterType
	encoder LogEncoderType
}

func (l *xLogger) IncreaseLogLevel(level zapcore.Level) {
	logger := l.logger.Load().WithOptions(zap.IncreaseLevel(level))
	l.logger.Store(logger)
}

func (l *xLogger) Sync() error {
	return l.logger.Load().Sync()
}

func (l *xLogger) With(fields ...zap.Field) XLogger {
	child := &xLogger{
		level:   l.level,
		writer:  l.writer,
		encoder: l.encoder,
	}
	child.logger.Store(l.logger.Load().With(fields...))
	return child
}

func (l *xLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Load().Debug(msg, fields...)
}

func (l *xLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Load().Info(msg, fields...)
}

func (l *xLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Load().Warn(msg, fields...)
}

func (l *xLogger) Error(err error, msg string, fields ...zap.Field) {
	newFields := []zap.Field{
		zap.String("error", err.Error()),
	}
	newFields = append(newFields, fields...)
	l.logger.Load().Error(msg, newFields...)
}

func (l *xLogger) ErrorStack(err error, msg string, fields ...zap.Field) {
	l.logger.Load().Error(msg, append(errorStackFields(err), fields...)...)
}

func (l *xLogger) Logf(lvl zapcore.Level, format string, args ...any) {
	l.logger.Load().Log(lvl, fmt.Sprintf(format, args...))
}

func (l *xLogger) ErrorStackf(err error, format string, args ...any) {
	l.logger.Load().Log(zap.ErrorLevel, fmt.Sprintf(format, args...), errorStackFields(err)...)
}

func errorStackFields(err error) []zap.Field {
	if err == nil {
		return []zap.Field{}
	}
	var es infra.ErrorStack
	if errors.As(err, &es) && es != nil {
		return []zap.Field{zap.Inline(es)}
	}
	return []zap.Field{zap.String("error", err.Error())}
}

type loggerCfg struct {
	writerType  *LogOutWriterType
	encoderType *LogEncoderType
	lvlEncoder  zapcore.LevelEncoder
	tsEncoder   zapcore.TimeEncoder
	level       *zapcore.Level
	funcKey     string
	core        xLogCore
}

// consoleCore encodes to the configured writer. The function key is read
// when the core is built, so the options order does not matter.
func (cfg *loggerCfg) consoleCore(
	lvlEnabler zapcore.LevelEnabler,
	encoder LogEncoderType,
	writer LogOutWriterType,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) (zapcore.Core, error) {
	config := zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		EncodeLevel:   lvlEnc,
		TimeKey:       "ts",
		EncodeTime:    tsEnc,
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   cfg.funcKey,
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
	return zapcore.NewCore(
		getEncoderByType(encoder)(config),
		getOutWriterByType(writer),
		lvlEnabler,
	), nil
}

func (cfg *loggerCfg) apply(l *xLogger) {
	if cfg.writerType != nil {
		l.writer = *cfg.writerType
	} else {
		l.writer = StdOut
	}

	if cfg.encoderType != nil {
		l.encoder = *cfg.encoderType
	} else {
		l.encoder = JSON
	}

	if cfg.level != nil {
		l.level = *cfg.level
	} else {
		l.level = getLogLevelOrDefault(os.Getenv("XLOG_LVL"))
	}

	if cfg.lvlEncoder == nil {
		cfg.lvlEncoder = zapcore.CapitalLevelEncoder
	}

	if cfg.tsEncoder == nil {
		cfg.tsEncoder = zapcore.ISO8601TimeEncoder
	}

	if cfg.core == nil {
		cfg.core = cfg.consoleCore
	}
}

type XLoggerOption func(*loggerCfg) error

func NewXLogger(opts ...XLoggerOption) XLogger {
	cfg := &loggerCfg{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(cfg); err != nil {
			panic(err)
		}
	}
	xl := &xLogger{}
	cfg.apply(xl)

	core, err := cfg.core(
		zap.NewAtomicLevelAt(xl.level),
		xl.encoder,
		xl.writer,
		cfg.lvlEncoder,
		cfg.tsEncoder,
	)
	if err != nil {
		panic(err)
	}

	// Disable zap logger error stack.
	l := zap.New(
		core,
		zap.AddCallerSkip(1), // Use caller filename as service
		zap.AddCaller(),
	)
	xl.logger.Store(l)
	return xl
}

func WithXLoggerWriter(w LogOutWriterType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if w >= _writerMax {
			return infra.NewErrorStack("unknown xlogger writer")
		}
		cfg.writerType = &w
		return nil
	}
}

func WithXLoggerEncoder(logEnc LogEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if logEnc >= _encMax {
			return infra.NewErrorStack("unknown xlogger encoder")
		}
		cfg.encoderType = &logEnc
		return nil
	}
}

func WithXLoggerLevel(lvl LogLevel) XLoggerOption {
	return func(cfg *loggerCfg) error {
		_lvl := lvl.zapLevel()
		cfg.level = &_lvl
		return nil
	}
}

func WithXLoggerLevelEncoder(lvlEnc zapcore.LevelEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if lvlEnc == nil {
			lvlEnc = zapcore.CapitalColorLevelEncoder
		}
		cfg.lvlEncoder = lvlEnc
		return nil
	}
}

func WithXLoggerTimeEncoder(tsEnc zapcore.TimeEncoder) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if tsEnc == nil {
			tsEnc = zapcore.ISO8601TimeEncoder
		}
		cfg.tsEncoder = tsEnc
		return nil
	}
}

// WithXLoggerConsoleCore restores the default core writing to the writer option.
func WithXLoggerConsoleCore() XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.core = cfg.consoleCore
		return nil
	}
}

// WithXLoggerFunctionKey adds the caller function name under the key.
// An empty key omits it, which is the default.
func WithXLoggerFunctionKey(key string) XLoggerOption {
	return func(cfg *loggerCfg) error {
		cfg.funcKey = strings.TrimSpace(key)
		return nil
	}
}

// WithXLoggerCore writes the entries to the given core instead of the console one.
// The core keeps its own level enabler and encoding, so the level, encoder
// and writer options do not apply to it.
func WithXLoggerCore(core zapcore.Core) XLoggerOption {
	return func(cfg *loggerCfg) error {
		if core == nil {
			return infra.NewErrorStack("nil xlogger core")
		}
		cfg.core = func(zapcore.LevelEnabler, LogEncoderType, LogOutWriterType, zapcore.LevelEncoder, zapcore.TimeEncoder) (zapcore.Core, error) {
			return core, nil
		}
		return nil
	}
}

func getLogLevelOrDefault(level string) zapcore.Level {
	if len(strings.TrimSpace(level)) == 0 {
		return zapcore.DebugLevel
	}

	switch strings.ToUpper(level) {
	case LogLevelInfo.String():
		return zapcore.InfoLevel
	case LogLevelWarn.String():
		return zapcore.WarnLevel
	case LogLevelError.String():
		return zapcore.ErrorLevel
	case LogLevelDebug.String():
		fallthrough
	default:
	}
	return zapcore.DebugLevel
}
