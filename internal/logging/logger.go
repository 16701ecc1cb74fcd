package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	errMu sync.Mutex
	errW  io.WriteCloser
}

func New(errorsPath string) (*Logger, error) {
	// Clear the log file on startup
	if err := os.Truncate(errorsPath, 0); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(errorsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	// Write errors to both stdout and file
	l := NewWithWriters(os.Stdout, io.MultiWriter(os.Stdout, f))
	l.errW = f
	return l, nil
}

// NewWithWriters builds a logger that never touches the filesystem.
// INFO and WARN lines go to out, ERROR lines to errOut.
func NewWithWriters(out, errOut io.Writer) *Logger {
	return &Logger{
		info: log.New(out, "INFO ", log.LstdFlags|log.Lmicroseconds),
		warn: log.New(out, "WARN ", log.LstdFlags|log.Lmicroseconds),
		err:  log.New(errOut, "ERROR ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
	}
}

// Discard returns a logger for tests that don't inspect output.
func Discard() *Logger {
	return NewWithWriters(io.Discard, io.Discard)
}

func (l *Logger) Close() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.errW != nil {
		err := l.errW.Close()
		l.errW = nil
		return err
	}
	return nil
}

func (l *Logger) Infof(format string, args ...any) {
	l.info.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warn.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	// depth 2 so Lshortfile points at the caller, not this file
	_ = l.err.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.errMu.Lock()
	defer l.errMu.Unlock()
	_ = l.err.Output(2, err.Error())
}

// Printf lets the logger back cron.PrintfLogger.
func (l *Logger) Printf(format string, args ...any) {
	l.info.Printf(format, args...)
}
