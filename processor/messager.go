package processor

import (
	"fmt"
	"go/token"
	"sync"

	"github.com/jhump/savestate/internal/logger"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// Diagnostic is a single message reported while processing. Pos is the zero
// value when the message has no location.
type Diagnostic struct {
	Severity Severity
	Pos      token.Position
	Message  string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%v: %s: %s", d.Pos, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Messager accumulates diagnostics. Reporting never halts processing. It is
// safe for concurrent use.
type Messager struct {
	mu    sync.Mutex
	diags []Diagnostic
	log   logger.Logger
}

// NewMessager returns a Messager that also logs every diagnostic to log. A
// nil log is allowed.
func NewMessager(log logger.Logger) *Messager {
	return &Messager{log: log}
}

func (m *Messager) Report(d Diagnostic) {
	m.mu.Lock()
	m.diags = append(m.diags, d)
	m.mu.Unlock()
	if m.log == nil {
		return
	}
	kv := []any{"pos", d.Pos}
	if !d.Pos.IsValid() {
		kv = nil
	}
	switch d.Severity {
	case SeverityError:
		m.log.Error(d.Message, kv...)
	case SeverityWarning:
		m.log.Warn(d.Message, kv...)
	default:
		m.log.Info(d.Message, kv...)
	}
}

// Errorf reports an error at the given position.
func (m *Messager) Errorf(pos token.Position, format string, args ...any) {
	m.Report(Diagnostic{Severity: SeverityError, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Error reports err. If it is an *ErrorWithPosition, its position is used.
func (m *Messager) Error(err error) {
	var pos token.Position
	if ep, ok := err.(*ErrorWithPosition); ok {
		pos = ep.Pos()
		err = ep.Underlying()
	}
	m.Report(Diagnostic{Severity: SeverityError, Pos: pos, Message: err.Error()})
}

// Diagnostics returns everything reported so far, in order.
func (m *Messager) Diagnostics() []Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Diagnostic(nil), m.diags...)
}

// ErrorCount returns the number of diagnostics with error severity.
func (m *Messager) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}
