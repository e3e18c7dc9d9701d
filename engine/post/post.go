package post

import (
	"sync"

	"github.com/lunarisgames/netsession/engine/nsutils"
)

// Callback is the type of functions to be posted
type Callback func()

// Queue collects callbacks to be executed when the owning loop finishes its
// current work. Each session owns its own Queue; callbacks always run on the
// session tick, never on the posting goroutine.
type Queue struct {
	lock      sync.Mutex
	callbacks []Callback
}

// NewQueue creates a post queue
func NewQueue() *Queue {
	return &Queue{}
}

// Post a callback which will be executed on the next tick
//
// Post might be called from other goroutines, so we use a lock to protect
// the data
func (q *Queue) Post(f Callback) {
	q.lock.Lock()
	q.callbacks = append(q.callbacks, f)
	q.lock.Unlock()
}

// Tick is called by the main loop to run all posted functions, including
// functions posted while Tick is draining
func (q *Queue) Tick() {
	for { // loop until there is no callbacks posted anymore
		q.lock.Lock()
		if len(q.callbacks) == 0 {
			q.lock.Unlock()
			break
		}
		// switch callbacks in locked section
		callbacks := q.callbacks
		q.callbacks = make([]Callback, 0, len(callbacks))
		q.lock.Unlock()

		for _, f := range callbacks {
			nsutils.RunPanicless(f)
		}
	}
}

// Pending returns the number of callbacks not executed yet
func (q *Queue) Pending() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.callbacks)
}
