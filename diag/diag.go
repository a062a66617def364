// Package diag provides a small diagnostic sink so the front end never
// writes to stderr directly from deep inside parsing — callers pass a Sink
// by reference, and tests substitute a Collector to capture output instead
// of asserting against process stderr.
package diag

import (
	"fmt"
	"io"

	"github.com/nyxlang/nyxc/nyxerr"
)

// Sink receives diagnostics as they are observed. It is never asked to
// decide whether the pipeline continues — stages always stop at the first
// error and return a *nyxerr.Error; Sink only renders it.
type Sink interface {
	Report(err *nyxerr.Error)
}

// Writer renders diagnostics to an io.Writer, matching the source line +
// caret + message + file:line shape described for the parser and carried
// through to every other stage's errors.
type Writer struct {
	W io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{W: w} }

func (w *Writer) Report(err *nyxerr.Error) {
	fmt.Fprintln(w.W, err.Error())
}

// Collector buffers diagnostics in memory. Tests use this instead of
// capturing stderr.
type Collector struct {
	Errors []*nyxerr.Error
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Report(err *nyxerr.Error) {
	c.Errors = append(c.Errors, err)
}

func (c *Collector) Len() int { return len(c.Errors) }

func (c *Collector) First() *nyxerr.Error {
	if len(c.Errors) == 0 {
		return nil
	}
	return c.Errors[0]
}
