package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/metrics"
)

// PersistFunc writes a layout snapshot to the canonical store.
type PersistFunc func(ctx context.Context, snap canvas.Snapshot, digest string) error

// CommitStatus is the committer's view of the last write.
type CommitStatus struct {
	Stale      bool   `json:"stale"`
	LastError  string `json:"last_error,omitempty"`
	LastDigest string `json:"last_digest,omitempty"`
	Written    int    `json:"written"`
}

// Committer pushes layout snapshots to the canonical store from a single
// worker goroutine, so at most one write is ever outstanding and writes land
// in call order. A snapshot submitted while another is queued replaces it;
// only the newest layout matters. A snapshot whose digest equals the last
// accepted one is skipped.
//
// Failed writes are not retried. They mark the layout stale until a later
// write succeeds.
type Committer struct {
	persist PersistFunc
	timeout time.Duration
	onDone  func(CommitStatus)

	mu       sync.Mutex
	idle     *sync.Cond
	queued   *canvas.Snapshot
	queuedAt string // digest of queued
	writing  bool
	accepted string // digest of the newest snapshot queued or written
	written  string // digest of the last successful write
	status   CommitStatus
	closed   bool

	wake chan struct{}
	done chan struct{}
}

// CommitterOption configures a Committer.
type CommitterOption func(*Committer)

// WithTimeout bounds each write. The default is 30s.
func WithTimeout(d time.Duration) CommitterOption {
	return func(c *Committer) { c.timeout = d }
}

// WithNotify registers a callback run after every write attempt, from the
// worker goroutine.
func WithNotify(fn func(CommitStatus)) CommitterOption {
	return func(c *Committer) { c.onDone = fn }
}

// WithBaseline seeds the digest of the layout already persisted, so the
// first commit of an unchanged layout is skipped.
func WithBaseline(digest string) CommitterOption {
	return func(c *Committer) {
		c.accepted = digest
		c.written = digest
		c.status.LastDigest = digest
	}
}

// NewCommitter starts the worker. Close stops it.
func NewCommitter(persist PersistFunc, opts ...CommitterOption) *Committer {
	c := &Committer{
		persist: persist,
		timeout: 30 * time.Second,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, o := range opts {
		o(c)
	}
	go c.loop()
	return c
}

// Commit schedules snap for writing. It returns false when the snapshot is
// identical to the last accepted one (or the committer is closed) and
// nothing was scheduled.
func (c *Committer) Commit(snap canvas.Snapshot) bool {
	digest := snap.Digest()

	c.mu.Lock()
	if c.closed || digest == c.accepted {
		c.mu.Unlock()
		metrics.Commits.WithLabelValues("skipped").Inc()
		return false
	}
	c.queued = &snap
	c.queuedAt = digest
	c.accepted = digest
	// Signalled under the lock so Close cannot close wake underneath us.
	select {
	case c.wake <- struct{}{}:
	default:
	}
	c.mu.Unlock()
	return true
}

// Status returns the outcome of the most recent write.
func (c *Committer) Status() CommitStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Flush blocks until nothing is queued or being written.
func (c *Committer) Flush() {
	c.mu.Lock()
	for c.queued != nil || c.writing {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Close flushes pending work and stops the worker.
func (c *Committer) Close() {
	c.Flush()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.wake)
	<-c.done
}

func (c *Committer) loop() {
	defer close(c.done)
	for range c.wake {
		for {
			c.mu.Lock()
			if c.queued == nil {
				c.idle.Broadcast()
				c.mu.Unlock()
				break
			}
			snap, digest := *c.queued, c.queuedAt
			c.queued = nil
			c.writing = true
			c.mu.Unlock()

			err := c.write(snap, digest)

			c.mu.Lock()
			c.writing = false
			if err != nil {
				log.Printf("reconcile: persisting layout: %v", err)
				metrics.Commits.WithLabelValues("failed").Inc()
				c.status.Stale = true
				c.status.LastError = err.Error()
				// Allow the same layout to be committed again by a later
				// user action.
				if c.queued == nil {
					c.accepted = c.written
				}
			} else {
				metrics.Commits.WithLabelValues("written").Inc()
				c.written = digest
				c.status.Stale = false
				c.status.LastError = ""
				c.status.LastDigest = digest
				c.status.Written++
			}
			st := c.status
			c.mu.Unlock()

			if c.onDone != nil {
				c.onDone(st)
			}
		}
	}
}

func (c *Committer) write(snap canvas.Snapshot, digest string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.persist(ctx, snap, digest)
}
