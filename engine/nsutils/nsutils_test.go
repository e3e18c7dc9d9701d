package nsutils

import "testing"

func TestRunPanicless(t *testing.T) {
	if RunPanicless(func() {}) {
		t.Errorf("should not panic")
	}
	if !RunPanicless(func() { panic("boom") }) {
		t.Errorf("panic not reported")
	}
}

func TestCatchPanic(t *testing.T) {
	if err := CatchPanic(func() error { return nil }); err != nil {
		t.Error(err)
	}
	if err := CatchPanic(func() error { panic("boom") }); err == nil {
		t.Errorf("panic should become error")
	}
}

func TestRepeatUntilPanicless(t *testing.T) {
	n := 0
	RepeatUntilPanicless(func() {
		n++
		if n < 3 {
			panic("again")
		}
	})
	if n != 3 {
		t.Errorf("should run 3 times, ran %d", n)
	}
}
