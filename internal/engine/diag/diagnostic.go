package diag

import (
	"fmt"
	"log/slog"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityDeprecation
)

func (s Severity) String() string {
	switch s {
	case SeverityDeprecation:
		return "deprecated"
	default:
		return "warning"
	}
}

// Diagnostic is a non-fatal notice produced next to a successful result.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     Span
}

func (d Diagnostic) String() string {
	if span := d.Span.String(); span != "" {
		return fmt.Sprintf("%s: %s at %s", d.Severity, d.Message, span)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Handler receives diagnostics. It is called synchronously from the producing
// goroutine.
type Handler func(Diagnostic)

// LogHandler writes diagnostics to the default slog logger.
func LogHandler(d Diagnostic) {
	attrs := []any{"severity", d.Severity.String()}
	if d.Span.Line > 0 {
		attrs = append(attrs, "line", d.Span.Line, "column", d.Span.Column)
	}
	slog.Warn(d.Message, attrs...)
}

// Collector accumulates diagnostics for callers that want to inspect them.
type Collector struct {
	Items []Diagnostic
}

func (c *Collector) Handle(d Diagnostic) {
	c.Items = append(c.Items, d)
}
