package nsutils

import (
	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/nslog"
)

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		if err := recover(); err != nil {
			nslog.TraceError("%v panic: %s", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// RepeatUntilPanicless runs the function repeatedly until there is no panic
func RepeatUntilPanicless(f func()) {
	for RunPanicless(f) {
	}
}

// CatchPanic calls the function and converts a panic to an error
func CatchPanic(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return f()
}
