package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
)

// recordingStore is a fake canonical layout store.
type recordingStore struct {
	mu      sync.Mutex
	writes  []string
	fail    error
	gate    chan struct{} // when non-nil, each write waits for a receive
	started chan struct{}
}

func (s *recordingStore) persist(ctx context.Context, snap canvas.Snapshot, digest string) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes = append(s.writes, digest)
	return nil
}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func graphWithNode(x, y float64) *canvas.Graph {
	g := canvas.NewGraph()
	g.AddNode(canvas.IngredientPayload{Ref: "ing-1", Name: "Iso E Super"}, geometry.Pt(x, y))
	return g
}

func TestCommitIsIdempotent(t *testing.T) {
	store := &recordingStore{}
	c := NewCommitter(store.persist)
	defer c.Close()

	snap := graphWithNode(120, 80).Snapshot()
	if !c.Commit(snap) {
		t.Fatal("first commit should be scheduled")
	}
	c.Flush()
	if c.Commit(snap) {
		t.Error("identical snapshot should be skipped")
	}
	c.Flush()
	if store.count() != 1 {
		t.Errorf("writes = %d, want 1", store.count())
	}
}

func TestCommitBaselineSkipsUnchangedLayout(t *testing.T) {
	store := &recordingStore{}
	snap := graphWithNode(0, 0).Snapshot()
	c := NewCommitter(store.persist, WithBaseline(snap.Digest()))
	defer c.Close()

	if c.Commit(snap) {
		t.Error("layout equal to the persisted baseline should be skipped")
	}
}

func TestCommitCoalescesAndKeepsOrder(t *testing.T) {
	store := &recordingStore{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	c := NewCommitter(store.persist)
	defer c.Close()

	g := graphWithNode(0, 0)
	id := g.Nodes()[0].ID
	first := g.Snapshot()
	c.Commit(first)
	<-store.started // the first write is now outstanding

	g.MoveNode(id, geometry.Pt(10, 0))
	c.Commit(g.Snapshot())
	g.MoveNode(id, geometry.Pt(20, 0))
	last := g.Snapshot()
	c.Commit(last) // replaces the queued one

	store.gate <- struct{}{}
	<-store.started
	store.gate <- struct{}{}
	c.Flush()

	if store.count() != 2 {
		t.Fatalf("writes = %d, want 2 (queued snapshot coalesced)", store.count())
	}
	if store.writes[0] != first.Digest() || store.writes[1] != last.Digest() {
		t.Error("writes applied out of order")
	}
}

func TestCommitFailureMarksStale(t *testing.T) {
	store := &recordingStore{fail: errors.New("store unreachable")}
	var notified []CommitStatus
	var mu sync.Mutex
	c := NewCommitter(store.persist, WithNotify(func(st CommitStatus) {
		mu.Lock()
		notified = append(notified, st)
		mu.Unlock()
	}))
	defer c.Close()

	snap := graphWithNode(5, 5).Snapshot()
	c.Commit(snap)
	c.Flush()

	st := c.Status()
	if !st.Stale || st.LastError == "" {
		t.Fatalf("status = %+v, want stale", st)
	}
	if store.count() != 0 {
		t.Error("failed write must not be retried")
	}

	// A later user action may try the same layout again and clear the flag.
	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	if !c.Commit(snap) {
		t.Fatal("layout should be committable again after a failure")
	}
	c.Flush()
	if st := c.Status(); st.Stale || st.Written != 1 {
		t.Errorf("status = %+v", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 2 {
		t.Errorf("notifications = %d, want 2", len(notified))
	}
}

func TestCommitAfterCloseIsSkipped(t *testing.T) {
	store := &recordingStore{}
	c := NewCommitter(store.persist)
	c.Close()
	c.Close()
	if c.Commit(graphWithNode(1, 1).Snapshot()) {
		t.Error("closed committer should not accept work")
	}
}
