package xlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

func (lvl LogLevel) zapLevel() zapcore.Level {
	switch lvl {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
	}
	return zapcore.DebugLevel
}

func (lvl LogLevel) String() string {
	return string(lvl)
}

type LogEncoderType uint8

const (
	JSON LogEncoderType = iota
	PlainText
	_encMax
)

type LogOutWriterType uint8

const (
	StdOut LogOutWriterType = iota
	testMemAsOut
	_writerMax
)

const coreKeyIgnored = ""

var (
	writerMap = map[LogOutWriterType]zapcore.WriteSyncer{
		StdOut: zapcore.Lock(os.Stdout),
	}
	encoderMap = map[LogEncoderType]func(cfg zapcore.EncoderConfig) zapcore.Encoder{
		JSON:      zapcore.NewJSONEncoder,
		PlainText: zapcore.NewConsoleEncoder,
	}
)

func getEncoderByType(typ LogEncoderType) func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	enc, ok := encoderMap[typ]
	if !ok {
		return zapcore.NewJSONEncoder
	}
	return enc
}

func getOutWriterByType(typ LogOutWriterType) zapcore.WriteSyncer {
	out, ok := writerMap[typ]
	if !ok {
		return zapcore.Lock(os.Stdout)
	}
	return out
}

// xLogCore builds the zap core once all the logger options are resolved.
type xLogCore func(
	lvlEnabler zapcore.LevelEnabler,
	encoder LogEncoderType,
	writer LogOutWriterType,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) (zapcore.Core, error)

type XLogger interface {
	IncreaseLogLevel(level zapcore.Level)
	Sync() error

	// With returns a child logger carrying the fields on every entry.
	With(fields ...zap.Field) XLogger

	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(err error, msg string, fields ...zap.Field)

	// ErrorStack is used to print all errors throws stacks.
	// Instead of using zap default error stack, it can print
	// the error stack in JSON format. It is easy for us to
	// use fluentd, fluentbit or other log aggregator to
	// parse the error stack, then display them in elastic
	// search or other tools.
	ErrorStack(err error, msg string, fields ...zap.Field)

	Logf(lvl zapcore.Level, format string, args ...any)
	ErrorStackf(err error, format string, args ...any)
}
