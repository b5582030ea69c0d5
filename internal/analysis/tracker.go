package analysis

import (
	"errors"
	"sync"
)

// Status is what an editor shows about analysis: whether a request is in
// flight, the last displayed result and the last failure.
type Status struct {
	InFlight bool    `json:"in_flight"`
	Result   *Record `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Tracker follows analysis requests for one editor. Only the most recent
// request may change what is displayed; earlier ones resolve silently.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	status Status
}

// Begin starts a request and returns its sequence number. A previous error
// is cleared, the previous result stays displayed until replaced.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.status.InFlight = true
	t.status.Error = ""
	return t.seq
}

// Resolve records the outcome of request seq. It reports false and changes
// nothing when a newer request has begun since.
func (t *Tracker) Resolve(seq uint64, rec *Record, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.seq {
		return false
	}
	t.status.InFlight = false
	if err != nil {
		t.status.Error = message(err)
		return true
	}
	t.status.Result = rec
	t.status.Error = ""
	return true
}

// Restore displays rec without starting a request, e.g. the last stored
// analysis when an editor opens.
func (t *Tracker) Restore(rec *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Result == nil && !t.status.InFlight {
		t.status.Result = rec
	}
}

// Status returns a copy of the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFormula):
		return "Cannot analyze an empty formula."
	case errors.Is(err, ErrInvalidResponse):
		return "The analysis service returned an unexpected answer. Please try again."
	default:
		return "Analysis failed: " + err.Error()
	}
}
