// Package guard runs user-supplied callbacks behind a panic boundary.
package guard

import (
	"fmt"
	"runtime/debug"
)

// PanicError is returned by Call when the callback panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Call invokes fn and converts a panic into a *PanicError.
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
