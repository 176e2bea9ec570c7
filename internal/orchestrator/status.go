// internal/orchestrator/status.go
package orchestrator

import (
	"fmt"
	"io"
	"sync"
)

// StatusSink receives the orchestrator's user-facing progress. The three
// states are mutually exclusive; a new report replaces the previous one.
type StatusSink interface {
	Progress(msg string)
	Error(msg string)
	Success(msg string)
}

type statusKind int

const (
	statusIdle statusKind = iota
	statusProgress
	statusError
	statusSuccess
)

// StatusDisplay is a single-slot console status line. Progress updates
// overwrite each other in place; an error or success report terminates the
// line and becomes the final state.
type StatusDisplay struct {
	mu   sync.Mutex
	out  io.Writer
	kind statusKind
	msg  string
}

// NewStatusDisplay writes status transitions to out.
func NewStatusDisplay(out io.Writer) *StatusDisplay {
	return &StatusDisplay{out: out}
}

func (d *StatusDisplay) Progress(msg string) { d.set(statusProgress, msg) }
func (d *StatusDisplay) Error(msg string)    { d.set(statusError, msg) }
func (d *StatusDisplay) Success(msg string)  { d.set(statusSuccess, msg) }

func (d *StatusDisplay) set(kind statusKind, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kind = kind
	d.msg = msg

	switch kind {
	case statusProgress:
		fmt.Fprintf(d.out, "\r\033[K%s", msg)
	case statusError:
		fmt.Fprintf(d.out, "\r\033[KError: %s\n", msg)
	case statusSuccess:
		fmt.Fprintf(d.out, "\r\033[K%s\n", msg)
	}
}

// Current reports the slot contents, mostly for tests.
func (d *StatusDisplay) Current() (progress, errMsg, success string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.kind {
	case statusProgress:
		return d.msg, "", ""
	case statusError:
		return "", d.msg, ""
	case statusSuccess:
		return "", "", d.msg
	}
	return "", "", ""
}
