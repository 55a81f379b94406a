package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/diag"
)

// consoleWriter serializes writes from concurrent check workers and the
// diagnostics handler onto one stream.
type consoleWriter struct {
	io.Writer
	mu *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Writer.Write(p)
}

type console struct {
	stdout *consoleWriter
	stderr *consoleWriter

	errColor  *color.Color
	warnColor *color.Color
	okColor   *color.Color
}

func newConsole(stdout, stderr io.Writer, colored bool) *console {
	mu := &sync.Mutex{}
	c := &console{
		stdout:    &consoleWriter{stdout, mu},
		stderr:    &consoleWriter{stderr, mu},
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow),
		okColor:   color.New(color.FgGreen),
	}
	for _, col := range []*color.Color{c.errColor, c.warnColor, c.okColor} {
		if colored {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func stdStreams() (stdout, stderr io.Writer, stderrTTY bool) {
	return colorable.NewColorableStdout(), colorable.NewColorableStderr(), isTTY(os.Stderr)
}

func (c *console) printError(err error) {
	fmt.Fprintf(c.stderr, "%s %s\n", c.errColor.Sprint("error:"), describeError(err))
}

func (c *console) diagnostic(d diag.Diagnostic) {
	msg := d.Message
	if span := d.Span.String(); span != "" {
		msg += " at " + span
	}
	fmt.Fprintf(c.stderr, "%s %s\n", c.warnColor.Sprintf("%s:", d.Severity), msg)
}

func (c *console) reportCheck(res ports.CheckResult) {
	for _, f := range res.Failures {
		c.printError(f.Err)
	}
	summary := fmt.Sprintf("%d files checked, %d failed", len(res.Files), len(res.Failures))
	if res.OK() {
		fmt.Fprintln(c.stdout, c.okColor.Sprint(summary))
		return
	}
	fmt.Fprintln(c.stdout, c.errColor.Sprint(summary))
}

// describeError renders an error for humans: the file first, then the
// message of the domain error and its cause. Context other than the path
// is left to the debug log.
func describeError(err error) string {
	var de *errors.DomainError
	if !errors.As(err, &de) {
		return err.Error()
	}
	msg := de.Message
	if de.Err != nil {
		msg += ": " + describeError(de.Err)
	}
	if path, ok := de.Context[errors.CtxPath].(string); ok && path != "" {
		msg = path + ": " + msg
	}
	return msg
}
