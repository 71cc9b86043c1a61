// Package explorer drives an interactive evolution-tree session: debounced
// species search, selection, expansion toggling, re-rooting, retry and reset.
package explorer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/evodex/internal/evolution"
)

// State is the controller's current mode.
type State string

const (
	StateSearching State = "searching"
	StateBuilding  State = "building"
	StateReady     State = "ready"
	StateError     State = "error"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

var (
	// ErrNoTree is returned by tree operations when no tree is displayed.
	ErrNoTree = errors.New("no evolution tree is displayed")
	// ErrNotRoot is returned when expansion is toggled on a non-root species.
	ErrNotRoot = errors.New("expansion can only be toggled on the tree's root species")
	// ErrNotInTree is returned when a species outside the displayed tree
	// is activated.
	ErrNotInTree = errors.New("species is not in the displayed evolution tree")
	// ErrNothingToRetry is returned by Retry outside the error state.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrSuperseded is returned when a newer action replaced the request
	// before its result could be committed.
	ErrSuperseded = errors.New("request superseded by a newer action")
)

// Searcher looks up species by name fragment.
type Searcher interface {
	Search(ctx context.Context, query string) ([]evolution.SpeciesRef, error)
}

// TreeBuilder builds the evolution tree rooted at a species.
type TreeBuilder interface {
	Build(ctx context.Context, root string, expanded evolution.ExpansionSet) (*evolution.Result, error)
}

// BuildObserver is told how long each build took.
type BuildObserver interface {
	ObserveBuild(d time.Duration, err error)
}

// Snapshot is a copy of the controller's visible state.
type Snapshot struct {
	State    State                  `json:"state"`
	Query    string                 `json:"query"`
	Results  []evolution.SpeciesRef `json:"results"`
	Selected string                 `json:"selected,omitempty"`
	BuildID  string                 `json:"build_id,omitempty"`
	Tree     *evolution.Result      `json:"tree,omitempty"`
	Err      error                  `json:"-"`
	Expanded []string               `json:"expanded"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the delay between the last keystroke and the search.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithMinQueryLength sets the shortest query that triggers a search.
func WithMinQueryLength(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.minQuery = n
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnChange registers fn to receive a snapshot after every transition.
// fn runs outside the controller's lock and may call back into it.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithBuildObserver reports build timings to o.
func WithBuildObserver(o BuildObserver) Option {
	return func(c *Controller) { c.observer = o }
}

// Controller is safe for concurrent use. It never holds its lock across a
// search or build.
type Controller struct {
	searcher Searcher
	builder  TreeBuilder
	debounce time.Duration
	minQuery int
	logger   *zap.Logger
	onChange func(Snapshot)
	observer BuildObserver

	mu        sync.Mutex
	state     State
	query     string
	results   []evolution.SpeciesRef
	selected  string
	buildID   string
	tree      *evolution.Result
	err       error
	expanded  evolution.ExpansionSet
	retry     func(context.Context) error
	buildGen  uint64
	searchGen uint64
	typeSeq   uint64
	timer     *time.Timer
}

// New creates a controller in the searching state.
func New(searcher Searcher, builder TreeBuilder, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		builder:  builder,
		debounce: DefaultDebounce,
		minQuery: DefaultMinQueryLength,
		logger:   zap.NewNop(),
		state:    StateSearching,
		results:  []evolution.SpeciesRef{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type records a keystroke. The search for the latest query runs once no
// further Type call arrives within the debounce window.
func (c *Controller) Type(ctx context.Context, query string) {
	c.mu.Lock()
	c.query = query
	c.typeSeq++
	seq := c.typeSeq
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		current := seq == c.typeSeq
		c.mu.Unlock()
		if !current {
			return
		}
		if _, err := c.Search(ctx, query); err != nil && !errors.Is(err, ErrSuperseded) {
			c.logger.Debug("debounced search failed", zap.String("query", query), zap.Error(err))
		}
	})
	c.mu.Unlock()
}

// Search runs a species search immediately and returns to the searching
// state, abandoning any displayed tree. Queries shorter than the minimum
// length clear the results without a lookup.
func (c *Controller) Search(ctx context.Context, query string) ([]evolution.SpeciesRef, error) {
	q := strings.TrimSpace(query)

	c.mu.Lock()
	c.searchGen++
	gen := c.searchGen
	c.buildGen++
	c.state = StateSearching
	c.query = query
	c.clearTreeLocked()
	short := utf8.RuneCountInString(q) < c.minQuery
	if short {
		c.results = []evolution.SpeciesRef{}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	if short {
		return []evolution.SpeciesRef{}, nil
	}

	refs, err := c.searcher.Search(ctx, q)

	c.mu.Lock()
	if gen != c.searchGen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale search", zap.String("query", q))
		return nil, ErrSuperseded
	}
	if err != nil {
		c.state = StateError
		c.err = err
		c.retry = func(ctx context.Context) error {
			_, err := c.Search(ctx, query)
			return err
		}
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		c.logger.Warn("species search failed", zap.String("query", q), zap.Error(err))
		return nil, err
	}
	if refs == nil {
		refs = []evolution.SpeciesRef{}
	}
	c.results = refs
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return copyRefs(refs), nil
}

// Select builds the tree rooted at name using the current expansion set.
func (c *Controller) Select(ctx context.Context, name string) (*evolution.Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, evolution.ErrInvalidSpecies
	}

	c.mu.Lock()
	c.stopTimerLocked()
	c.searchGen++
	c.buildGen++
	gen := c.buildGen
	c.clearTreeLocked()
	c.state = StateBuilding
	c.selected = name
	c.buildID = uuid.NewString()
	id := c.buildID
	expanded := c.expanded
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	log := c.logger.With(zap.String("build_id", id), zap.String("species", name))
	log.Debug("building evolution tree", zap.Strings("expanded", expanded.Names()))

	start := time.Now()
	res, err := c.builder.Build(ctx, name, expanded)
	if c.observer != nil {
		c.observer.ObserveBuild(time.Since(start), err)
	}

	c.mu.Lock()
	if gen != c.buildGen {
		c.mu.Unlock()
		log.Debug("discarding stale build")
		return nil, ErrSuperseded
	}
	if err != nil {
		c.state = StateError
		c.err = err
		c.retry = func(ctx context.Context) error {
			_, err := c.Select(ctx, name)
			return err
		}
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		log.Warn("evolution tree build failed", zap.Error(err))
		return nil, err
	}
	c.state = StateReady
	c.tree = res
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	log.Debug("evolution tree ready", zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// ToggleExpansion flips the expansion of the displayed tree's root and
// rebuilds it.
func (c *Controller) ToggleExpansion(ctx context.Context, name string) (*evolution.Result, error) {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	if c.state != StateReady || c.tree == nil {
		c.mu.Unlock()
		return nil, ErrNoTree
	}
	if name != c.tree.Species.Name {
		c.mu.Unlock()
		return nil, ErrNotRoot
	}
	c.expanded = c.expanded.Toggle(name)
	c.mu.Unlock()

	return c.Select(ctx, name)
}

// Activate handles a click on a rendered species. The root of a large
// family toggles its expansion, the root of any other family is left as
// is, and every other species in the tree becomes the new root. Names not
// in the displayed tree return ErrNotInTree.
func (c *Controller) Activate(ctx context.Context, name string) (*evolution.Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, evolution.ErrInvalidSpecies
	}

	c.mu.Lock()
	if c.state != StateReady || c.tree == nil {
		c.mu.Unlock()
		return nil, ErrNoTree
	}
	tree := c.tree
	c.mu.Unlock()

	if name != tree.Species.Name {
		if !inTree(tree.Forward, name) && !inTree(tree.Reverse, name) {
			return nil, ErrNotInTree
		}
		return c.Select(ctx, name)
	}
	if !tree.FamilyLarge {
		return tree, nil
	}
	return c.ToggleExpansion(ctx, name)
}

// Retry replays the request that put the controller into the error state.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	retry := c.retry
	ok := c.state == StateError && retry != nil
	c.mu.Unlock()
	if !ok {
		return ErrNothingToRetry
	}
	return retry(ctx)
}

// Reset returns to an empty search. In-flight searches and builds are
// discarded when they finish. The expansion set is kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.searchGen++
	c.buildGen++
	c.state = StateSearching
	c.query = ""
	c.results = []evolution.SpeciesRef{}
	c.clearTreeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsExpanded reports whether name is in the expansion set.
func (c *Controller) IsExpanded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded.Has(name)
}

func (c *Controller) clearTreeLocked() {
	c.selected = ""
	c.buildID = ""
	c.tree = nil
	c.err = nil
	c.retry = nil
}

func (c *Controller) stopTimerLocked() {
	c.typeSeq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Query:    c.query,
		Results:  copyRefs(c.results),
		Selected: c.selected,
		BuildID:  c.buildID,
		Tree:     c.tree,
		Err:      c.err,
		Expanded: c.expanded.Names(),
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func inTree(nodes []evolution.Node, name string) bool {
	for _, n := range nodes {
		if n.Species.Name == name || inTree(n.Children, name) {
			return true
		}
	}
	return false
}

func copyRefs(in []evolution.SpeciesRef) []evolution.SpeciesRef {
	out := make([]evolution.SpeciesRef, len(in))
	copy(out, in)
	return out
}
