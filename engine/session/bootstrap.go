package session

import (
	"sync"
)

var (
	bootLock    sync.Mutex
	bootSession *Session
)

// Bootstrap creates the process-wide session on first call and returns the
// same session on every later call, regardless of options. Composition only;
// the caller still calls Start and Run.
func Bootstrap(opts Options) *Session {
	bootLock.Lock()
	defer bootLock.Unlock()
	if bootSession == nil {
		bootSession = New(opts)
	}
	return bootSession
}

// Current returns the bootstrapped session, nil before Bootstrap
func Current() *Session {
	bootLock.Lock()
	defer bootLock.Unlock()
	return bootSession
}

// Shutdown terminates and forgets the bootstrapped session so a new one can
// be bootstrapped
func Shutdown() {
	bootLock.Lock()
	defer bootLock.Unlock()
	if bootSession != nil {
		bootSession.Terminate()
		bootSession = nil
	}
}
