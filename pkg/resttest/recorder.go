package resttest

import (
	"fmt"
	"sync"
)

// failNow is the panic value a Recorder uses to unwind a scenario.
type failNow struct{}

// Recorder is a TestingT that collects failures instead of reporting them
// to the testing package. It lets a sequence keep going after a scenario
// fails and later inspect what went wrong.
type Recorder struct {
	mu     sync.Mutex
	errs   []string
	failed bool
}

// Helper is a no-op.
func (r *Recorder) Helper() {}

// Errorf records a failure message.
func (r *Recorder) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
	r.errs = append(r.errs, fmt.Sprintf(format, args...))
}

// FailNow marks the recorder failed and unwinds to the enclosing Run.
func (r *Recorder) FailNow() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
	panic(failNow{})
}

// Failed reports whether any failure was recorded.
func (r *Recorder) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Errors returns the recorded failure messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errs...)
}

// Run calls fn, stopping at the first FailNow. Any other panic is recorded
// as a "panic: <value>" failure and also stops fn.
func (r *Recorder) Run(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(failNow); !ok {
				r.Errorf("panic: %v", p)
			}
		}
	}()
	fn()
}
