package infra

import (
	"errors"
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

const maxStackDepth = 32

type Frame uintptr

func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) file() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFile"
	}
	f, _ := fn.FileLine(pc)
	return f
}

func (frame Frame) line() int {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0
	}
	_, l := fn.FileLine(pc)
	return l
}

func (frame Frame) name() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFunc"
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - equivalent to %s:%d
// %+s - function name and full path separated by \n\t
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, frame.file())
		} else {
			_, _ = io.WriteString(s, path.Base(frame.file()))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(frame.line()))
	case 'n':
		_, _ = io.WriteString(s, funcName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	}
}

// MarshalText renders "<func> <file>:<line>".
func (frame Frame) MarshalText() ([]byte, error) {
	name := frame.name()
	if name == "unknownFunc" {
		return []byte("unknownFrame"), nil
	}
	builder := strings.Builder{}
	_, _ = builder.WriteString(name)
	_, _ = builder.WriteString(" ")
	_, _ = builder.WriteString(frame.file())
	_, _ = builder.WriteString(":")
	_, _ = builder.WriteString(strconv.Itoa(frame.line()))
	return []byte(builder.String()), nil
}

func funcName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}

type frames []Frame

func (fs frames) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, f := range fs {
		text, _ := f.MarshalText()
		enc.AppendByteString(text)
	}
	return nil
}

func callers(skip int) frames {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	fs := make(frames, 0, n)
	for i := 0; i < n; i++ {
		fs = append(fs, Frame(pcs[i]))
	}
	return fs
}

// ErrorStack is an error which remembers where it was created.
// It can be inlined into zap fields as an object, then the
// log aggregator is able to parse the frames as a JSON array.
type ErrorStack interface {
	error
	zapcore.ObjectMarshaler
	Unwrap() error
	StackFrames() []Frame
}

var _ ErrorStack = (*errorStack)(nil)

type errorStack struct {
	msg    string
	cause  error
	frames frames
}

func (es *errorStack) Error() string {
	if es.cause == nil {
		return es.msg
	}
	if len(es.msg) == 0 {
		return es.cause.Error()
	}
	return es.msg + ": " + es.cause.Error()
}

func (es *errorStack) Unwrap() error {
	return es.cause
}

func (es *errorStack) StackFrames() []Frame {
	return es.frames
}

func (es *errorStack) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("error", es.Error())
	return enc.AddArray("errorStack", es.frames)
}

func (es *errorStack) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		_, _ = io.WriteString(s, es.Error())
		if s.Flag('+') {
			for _, f := range es.frames {
				_, _ = io.WriteString(s, "\n")
				f.Format(s, verb)
			}
		}
	case 's':
		_, _ = io.WriteString(s, es.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", es.Error())
	}
}

func NewErrorStack(msg string) error {
	return &errorStack{
		msg:    msg,
		frames: callers(3),
	}
}

// WrapErrorStackWithMessage keeps err as the cause, so errors.Is
// still matches the sentinel behind it. A nil err returns nil.
func WrapErrorStackWithMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	var es *errorStack
	if errors.As(err, &es) && es != nil {
		// Keep the innermost frames, they are closer to the cause.
		return &errorStack{
			msg:    msg,
			cause:  err,
			frames: es.frames,
		}
	}
	return &errorStack{
		msg:    msg,
		cause:  err,
		frames: callers(3),
	}
}
