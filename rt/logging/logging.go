package logging

import (
	"io"
	"os"
	"sync"

	gologging "github.com/op/go-logging"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

var format = gologging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	backendMu sync.Mutex
	leveled   gologging.LeveledBackend
)

// SetSink routes every logger created by this package to w.
func SetSink(w io.Writer) {
	backendMu.Lock()
	defer backendMu.Unlock()

	backend := gologging.NewLogBackend(w, "", 0)
	formatted := gologging.NewBackendFormatter(backend, format)
	level := gologging.NOTICE
	if leveled != nil {
		level = leveled.GetLevel("")
	}
	leveled = gologging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	gologging.SetBackend(leveled)
}

// DefaultLogger is a named go-logging logger with a debug switch that can be
// flipped at runtime.
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	module string
	log    *gologging.Logger
}

func NewDefaultLogger(module string, debug bool) *DefaultLogger {
	l := &DefaultLogger{
		module: module,
		log:    gologging.MustGetLogger(module),
	}
	l.SetDebug(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()

	backendMu.Lock()
	defer backendMu.Unlock()
	if leveled == nil {
		return
	}
	if enabled {
		leveled.SetLevel(gologging.DEBUG, l.module)
	} else {
		leveled.SetLevel(gologging.INFO, l.module)
	}
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.log.Debugf(format, args...)
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.log.Infof(format, args...)
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.log.Warningf(format, args...)
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.log.Errorf(format, args...)
}

type nopLogger struct{}

func NewNop() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// OrNop never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func init() {
	SetSink(os.Stderr)
}
