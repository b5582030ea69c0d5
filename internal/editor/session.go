// Package editor hosts live editing sessions. A Session is the composition
// root for one formula: it owns the visual graph, viewport, selection and
// gesture state, keeps them in sync with the canonical formula store and
// serializes every event under one mutex.
package editor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ziadkadry99/formula-canvas/internal/accord"
	"github.com/ziadkadry99/formula-canvas/internal/analysis"
	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/catalog"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/gesture"
	"github.com/ziadkadry99/formula-canvas/internal/inspector"
	"github.com/ziadkadry99/formula-canvas/internal/reconcile"
)

// Deps are the collaborators a session talks to. Formulas is required; the
// rest may be nil, which disables the features that need them.
type Deps struct {
	Formulas *formula.Store
	Catalog  catalog.Lookup
	Index    *catalog.SimilarityIndex
	Analyzer *analysis.Service
	Analyses *analysis.Store
}

// Options tune canvas behaviour.
type Options struct {
	MinZoom         float64
	MaxZoom         float64
	GroupPadding    float64
	DefaultStrength float64
	Cascade         reconcile.Options
	CommitTimeout   time.Duration
}

// DefaultOptions returns the editor defaults.
func DefaultOptions() Options {
	return Options{
		MinZoom:         geometry.DefaultMinZoom,
		MaxZoom:         geometry.DefaultMaxZoom,
		GroupPadding:    accord.DefaultPadding,
		DefaultStrength: 0.5,
		Cascade:         reconcile.DefaultOptions(),
		CommitTimeout:   30 * time.Second,
	}
}

// Session is one open formula.
type Session struct {
	id   string
	deps Deps
	opts Options

	mu        sync.Mutex
	graph     *canvas.Graph
	view      geometry.Viewport
	sel       canvas.Selection
	gestures  *gesture.Controller
	engine    *reconcile.Engine
	committer *reconcile.Committer
	lastErr   string
	// commitPending is set when a structural edit lands mid-gesture; the
	// commit runs when the gesture ends.
	commitPending bool

	tracker analysis.Tracker
	bg      sync.WaitGroup

	watchMu   sync.Mutex
	watchers  map[int]chan struct{}
	nextWatch int

	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// Open loads the persisted layout of a formula, repairs it, reconciles it
// against the canonical line items and starts following canonical changes.
func Open(ctx context.Context, formulaID string, deps Deps, opts Options) (*Session, error) {
	if _, err := deps.Formulas.Get(ctx, formulaID); err != nil {
		return nil, err
	}

	layout, found, err := deps.Formulas.Layout(ctx, formulaID)
	if err != nil {
		return nil, fmt.Errorf("loading layout: %w", err)
	}
	g := canvas.NewGraph()
	if found {
		var report canvas.PruneReport
		g, report = canvas.LoadSnapshot(layout.Snapshot)
		if report.Changed() {
			log.Printf("editor: %s: repaired persisted layout: %+v", formulaID, report)
		}
	}

	s := &Session{
		id:       formulaID,
		deps:     deps,
		opts:     opts,
		graph:    g,
		view:     geometry.NewViewport(opts.MinZoom, opts.MaxZoom),
		engine:   reconcile.NewEngine(opts.Cascade),
		watchers: make(map[int]chan struct{}),
		done:     make(chan struct{}),
	}
	s.gestures = gesture.New(s.graph, &s.view, &s.sel, hooks{s}, opts.DefaultStrength)

	// Subscribe before the first read so a write landing in between is
	// still delivered.
	changes, cancel := deps.Formulas.Subscribe(formulaID)
	c, err := s.canonical(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	s.engine.Reconcile(s.graph, c)

	commitOpts := []reconcile.CommitterOption{
		reconcile.WithNotify(func(reconcile.CommitStatus) { s.notify() }),
	}
	if opts.CommitTimeout > 0 {
		commitOpts = append(commitOpts, reconcile.WithTimeout(opts.CommitTimeout))
	}
	if found {
		commitOpts = append(commitOpts, reconcile.WithBaseline(layout.Digest))
	}
	s.committer = reconcile.NewCommitter(s.persist, commitOpts...)

	if deps.Analyses != nil {
		if rec, err := deps.Analyses.Latest(ctx, formulaID); err == nil {
			s.tracker.Restore(rec)
		}
	}

	s.unsubscribe = cancel
	go s.follow(changes)
	return s, nil
}

// ID returns the formula id.
func (s *Session) ID() string { return s.id }

// Close stops following the store, waits for in-flight analyses and flushes
// the last layout commit.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		<-s.done
		s.bg.Wait()

		s.mu.Lock()
		if s.commitPending {
			s.commitPending = false
			s.committer.Commit(s.graph.Snapshot())
		}
		s.mu.Unlock()
		s.committer.Close()

		s.watchMu.Lock()
		for id, ch := range s.watchers {
			close(ch)
			delete(s.watchers, id)
		}
		s.watchMu.Unlock()
	})
}

// follow requests a reconciliation for every canonical change except the
// layout writes this session makes itself.
func (s *Session) follow(changes <-chan formula.Change) {
	defer close(s.done)
	for ch := range changes {
		if ch.Kind == formula.ChangeLayout {
			continue
		}
		s.mu.Lock()
		s.requestReconcile(context.Background())
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Session) canonical(ctx context.Context) (reconcile.Canonical, error) {
	f, err := s.deps.Formulas.Get(ctx, s.id)
	if err != nil {
		return reconcile.Canonical{}, err
	}
	items, err := s.deps.Formulas.Items(ctx, s.id)
	if err != nil {
		return reconcile.Canonical{}, err
	}
	c := reconcile.Canonical{TargetTotal: f.TargetTotal, Items: make([]reconcile.LineItem, 0, len(items))}
	for _, it := range items {
		c.Items = append(c.Items, reconcile.LineItem{Ref: it.Ref, Name: it.Name, Amount: it.Amount})
	}
	return c, nil
}

func (s *Session) persist(ctx context.Context, snap canvas.Snapshot, digest string) error {
	return s.deps.Formulas.PersistLayout(ctx, s.id, snap, digest)
}

// requestReconcile runs an inbound pass now, or defers it while a gesture
// is in progress. Callers hold s.mu.
func (s *Session) requestReconcile(ctx context.Context) {
	report, ran, err := s.engine.Request(ctx, s.graph, reconcile.SourceFunc(s.canonical), s.gestures.Active())
	s.reconciled(report, ran, err)
}

func (s *Session) reconciled(report reconcile.Report, ran bool, err error) {
	if err != nil {
		log.Printf("editor: %s: %v", s.id, err)
		s.lastErr = "Could not read the formula: " + err.Error()
		return
	}
	if ran && report.Changed() {
		s.sel.Prune(s.graph)
	}
}

// commit prunes the graph and hands its snapshot to the committer. While a
// gesture is active it only marks the commit pending, so a half-finished
// drag is never persisted. Callers hold s.mu.
func (s *Session) commit() {
	if s.gestures.Active() {
		s.commitPending = true
		return
	}
	s.commitPending = false
	if report := s.graph.Prune(); report.Changed() {
		log.Printf("editor: %s: pruned before commit: %+v", s.id, report)
	}
	s.sel.Prune(s.graph)
	s.committer.Commit(s.graph.Snapshot())
}

// hooks receives gesture boundaries. The controller calls it while the
// session lock is held.
type hooks struct{ s *Session }

func (h hooks) Commit() { h.s.commit() }

func (h hooks) GestureEnded() {
	if h.s.commitPending {
		h.s.commit()
	}
	report, ran, err := h.s.engine.Resume(context.Background(), h.s.graph, reconcile.SourceFunc(h.s.canonical))
	h.s.reconciled(report, ran, err)
}

// Watch returns a channel signalled after every state change. Signals
// coalesce; read State after each one.
func (s *Session) Watch() (<-chan struct{}, func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			if c, ok := s.watchers[id]; ok {
				close(c)
				delete(s.watchers, id)
			}
		})
	}
}

func (s *Session) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// State is everything a client needs to draw the editor.
type State struct {
	FormulaID   string                 `json:"formula_id"`
	Nodes       []canvas.SnapshotNode  `json:"nodes"`
	Connections []canvas.Connection    `json:"connections"`
	Groups      []accord.Telemetry     `json:"groups"`
	Selection   SelectionState         `json:"selection"`
	Inspector   inspector.View         `json:"inspector"`
	Viewport    geometry.Viewport      `json:"viewport"`
	Gesture     gesture.Mode           `json:"gesture"`
	Preview     *gesture.Preview       `json:"preview,omitempty"`
	Commit      reconcile.CommitStatus `json:"commit"`
	Unsynced    int                    `json:"unsynced"`
	Analysis    analysis.Status        `json:"analysis"`
	Error       string                 `json:"error,omitempty"`
}

// SelectionState is the wire form of the selection.
type SelectionState struct {
	Kind  canvas.SelectionKind `json:"kind"`
	Nodes []canvas.NodeID      `json:"nodes,omitempty"`
	Group canvas.GroupID       `json:"group,omitempty"`
}

// State returns the current view of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	snap := s.graph.Snapshot()
	st := State{
		FormulaID:   s.id,
		Nodes:       snap.Nodes,
		Connections: snap.Connections,
		Groups:      accord.ComputeAll(s.graph, s.deps.Catalog, s.opts.GroupPadding),
		Selection:   SelectionState{Kind: s.sel.Kind(), Nodes: s.sel.Nodes()},
		Inspector:   inspector.Project(s.sel, s.graph, s.deps.Catalog, s.opts.GroupPadding),
		Viewport:    s.view,
		Gesture:     s.gestures.Mode(),
		Commit:      s.committer.Status(),
		Unsynced:    s.engine.Unsynced(),
		Analysis:    s.tracker.Status(),
		Error:       s.lastErr,
	}
	if gid, ok := s.sel.Group(); ok {
		st.Selection.Group = gid
	}
	if p, ok := s.gestures.Preview(); ok {
		st.Preview = &p
	}
	if st.Connections == nil {
		st.Connections = []canvas.Connection{}
	}
	return st
}
