//go:build debug

package errors

import (
	"bytes"
	"fmt"
	"runtime"
)

type stack struct {
	callers []uintptr
}

func (e *Error) populateStack() {
	e.callers = make([]uintptr, 32)
	n := runtime.Callers(3, e.callers)
	e.callers = e.callers[:n]
}

func (e *Error) printStack(b *bytes.Buffer) {
	frames := runtime.CallersFrames(e.callers)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(b, "%s:%d: %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
}
