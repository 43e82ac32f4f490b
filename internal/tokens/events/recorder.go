package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu           sync.Mutex
	Issued       []TokenIssued
	LinkFailures []ProfileLinkFailed
	Closed       []DayClosed
	Err          error
}

func (r *Recorder) TokenIssued(_ context.Context, e TokenIssued) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issued = append(r.Issued, e)
	return r.Err
}

func (r *Recorder) ProfileLinkFailed(_ context.Context, e ProfileLinkFailed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LinkFailures = append(r.LinkFailures, e)
	return r.Err
}

func (r *Recorder) DayClosed(_ context.Context, e DayClosed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = append(r.Closed, e)
	return r.Err
}

// Snapshot returns copies of the recorded events.
func (r *Recorder) Snapshot() ([]TokenIssued, []ProfileLinkFailed, []DayClosed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TokenIssued(nil), r.Issued...),
		append([]ProfileLinkFailed(nil), r.LinkFailures...),
		append([]DayClosed(nil), r.Closed...)
}
