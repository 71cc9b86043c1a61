package evolution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxDepth is the hard ceiling on traversal depth.
	DefaultMaxDepth = 8
	// DefaultCollapsedDepth is the depth used for unexpanded large families.
	DefaultCollapsedDepth = 1
	// DefaultLargeFamilyTag marks edges of deep, densely cross-linked families.
	DefaultLargeFamilyTag = "digimon"
)

// ErrInvalidSpecies is returned when the root name is empty after trimming.
var ErrInvalidSpecies = errors.New("invalid species name")

// Source supplies evolution edges and species metadata to the Builder.
// Edge lookups never fail: implementations degrade to an empty list.
type Source interface {
	ForwardEvolutions(ctx context.Context, name string) []Edge
	ReverseEvolutions(ctx context.Context, name string) []Edge
	Species(ctx context.Context, name string) (SpeciesRef, error)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMaxDepth sets the full traversal depth. Values outside 1..8 fall back
// to DefaultMaxDepth.
func WithMaxDepth(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 1 && n <= DefaultMaxDepth {
			b.maxDepth = n
		}
	}
}

// WithCollapsedDepth sets the depth used for unexpanded large families.
func WithCollapsedDepth(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 1 {
			b.collapsedDepth = n
		}
	}
}

// WithLargeFamilyTag sets the edge tag that classifies a large family.
func WithLargeFamilyTag(tag string) BuilderOption {
	return func(b *Builder) {
		if tag = strings.TrimSpace(tag); tag != "" {
			b.familyTag = tag
		}
	}
}

// WithConcurrency builds up to n sibling subtrees at once. 1 keeps the
// walk strictly sequential.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 1 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// Builder resolves bidirectional evolution trees. It keeps no state between
// builds; everything it reuses lives behind its Source.
type Builder struct {
	src            Source
	maxDepth       int
	collapsedDepth int
	familyTag      string
	concurrency    int
	logger         *zap.Logger
}

// NewBuilder creates a Builder reading from src.
func NewBuilder(src Source, opts ...BuilderOption) *Builder {
	b := &Builder{
		src:            src,
		maxDepth:       DefaultMaxDepth,
		collapsedDepth: DefaultCollapsedDepth,
		familyTag:      DefaultLargeFamilyTag,
		concurrency:    1,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.collapsedDepth > b.maxDepth {
		b.collapsedDepth = b.maxDepth
	}
	return b
}

// Build resolves the tree rooted at rootName. The depth limit is the
// collapsed depth when the root belongs to a large family and is not in
// expanded, and the full depth otherwise.
func (b *Builder) Build(ctx context.Context, rootName string, expanded ExpansionSet) (*Result, error) {
	name := strings.TrimSpace(rootName)
	if name == "" {
		return nil, ErrInvalidSpecies
	}

	root, rootErr := b.src.Species(ctx, name)
	if rootErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		root = SpeciesRef{Name: name}
	}
	if root.Name == "" {
		root.Name = name
	}

	large, adjacent, err := b.classify(ctx, name)
	if err != nil {
		return nil, err
	}
	// A root the gateway knows nothing about is only reported as a failure
	// when its own lookup failed too; otherwise it builds without an image.
	if rootErr != nil {
		if adjacent == 0 {
			return nil, fmt.Errorf("resolving species %q: %w", name, rootErr)
		}
		b.logger.Warn("root species lookup failed, continuing without image",
			zap.String("species", name), zap.Error(rootErr))
	}

	isExpanded := expanded.Has(name)
	limit := b.maxDepth
	if large && !isExpanded {
		limit = b.collapsedDepth
	}

	forward, err := b.walk(ctx, name, Forward, limit, nil, 0)
	if err != nil {
		return nil, err
	}
	reverse, err := b.walk(ctx, name, Reverse, limit, nil, 0)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("built evolution tree",
		zap.String("species", name),
		zap.Bool("family_large", large),
		zap.Bool("expanded", isExpanded),
		zap.Int("depth_limit", limit),
		zap.Int("forward", len(forward)),
		zap.Int("reverse", len(reverse)),
	)

	return &Result{
		Species:     root,
		Forward:     forward,
		Reverse:     reverse,
		FamilyLarge: large,
		Expanded:    isExpanded,
		DepthLimit:  limit,
	}, nil
}

// classify reports whether any edge adjacent to name carries the
// large-family tag, and how many adjacent edges there are. Only direct
// neighbours are inspected.
func (b *Builder) classify(ctx context.Context, name string) (large bool, adjacent int, err error) {
	forward := b.src.ForwardEvolutions(ctx, name)
	reverse := b.src.ReverseEvolutions(ctx, name)
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	for _, edges := range [][]Edge{forward, reverse} {
		for _, e := range edges {
			if e.FamilyTag == b.familyTag {
				large = true
			}
		}
	}
	return large, len(forward) + len(reverse), nil
}

func (b *Builder) edges(ctx context.Context, name string, dir Direction) []Edge {
	if dir == Reverse {
		return b.src.ReverseEvolutions(ctx, name)
	}
	return b.src.ForwardEvolutions(ctx, name)
}

// walk returns the children of name in one direction. p holds the species
// on the current root-to-node path only, so siblings may revisit each
// other's species while ancestors are never repeated.
func (b *Builder) walk(ctx context.Context, name string, dir Direction, limit int, p *path, depth int) ([]Node, error) {
	if depth >= limit || p.contains(name) {
		return []Node{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = p.push(name)
	edges := b.edges(ctx, name, dir)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(edges))
	for _, e := range edges {
		target := strings.TrimSpace(e.To.Name)
		if target == "" || p.contains(target) {
			continue
		}
		targets = append(targets, target)
	}

	nodes := make([]Node, len(targets))
	if b.concurrency <= 1 || len(targets) < 2 {
		for i, target := range targets {
			n, err := b.child(ctx, target, dir, limit, p, depth)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		return nodes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			n, err := b.child(gctx, target, dir, limit, p, depth)
			if err != nil {
				return err
			}
			nodes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (b *Builder) child(ctx context.Context, name string, dir Direction, limit int, p *path, depth int) (Node, error) {
	ref, err := b.src.Species(ctx, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Node{}, ctxErr
		}
		b.logger.Debug("species lookup failed, continuing without image",
			zap.String("species", name), zap.Error(err))
		ref = SpeciesRef{Name: name}
	}
	if ref.Name == "" {
		ref.Name = name
	}

	children, err := b.walk(ctx, name, dir, limit, p, depth+1)
	if err != nil {
		return Node{}, err
	}
	return Node{Species: ref, Children: children, Depth: depth + 1}, nil
}

// path is an immutable list of the species between the walk's root and the
// current node. push never modifies the receiver.
type path struct {
	name   string
	parent *path
}

func (p *path) push(name string) *path {
	return &path{name: name, parent: p}
}

func (p *path) contains(name string) bool {
	for n := p; n != nil; n = n.parent {
		if n.name == name {
			return true
		}
	}
	return false
}
