//go:build !debug

package errors

import "bytes"

// Stack collection is compiled out unless the debug tag is set.

type stack struct{}

func (e *Error) populateStack()           {}
func (e *Error) printStack(*bytes.Buffer) {}
