package gateway

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/evodex/internal/cache"
	"github.com/ziadkadry99/evodex/internal/evolution"
)

// DefaultSearchLimit caps the number of search results kept per query.
const DefaultSearchLimit = 10

// Fetcher is the raw gateway surface. *Client implements it.
type Fetcher interface {
	FetchForward(ctx context.Context, name string) ([]EvolutionOption, error)
	FetchReverse(ctx context.Context, name string) ([]EvolutionOption, error)
	Search(ctx context.Context, query string) ([]string, error)
	Images(ctx context.Context, names []string) (map[string]ImageInfo, error)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSearchLimit caps the number of search results.
func WithSearchLimit(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.searchLimit = n
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver answers lookups from the cache first and falls back to the
// gateway. Successful answers, including empty ones, are cached; failures
// are not, so the next lookup retries. Edge-list failures are logged and
// read as "no evolutions".
type Resolver struct {
	fetcher     Fetcher
	cache       *cache.Cache
	group       singleflight.Group
	searchLimit int
	logger      *zap.Logger
}

// NewResolver creates a resolver backed by f and c.
func NewResolver(f Fetcher, c *cache.Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher:     f,
		cache:       c,
		searchLimit: DefaultSearchLimit,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *cache.Cache { return r.cache }

// ForwardEvolutions returns the species name evolves into.
func (r *Resolver) ForwardEvolutions(ctx context.Context, name string) []evolution.Edge {
	return r.evolutions(ctx, name, evolution.Forward)
}

// ReverseEvolutions returns the species name evolves from.
func (r *Resolver) ReverseEvolutions(ctx context.Context, name string) []evolution.Edge {
	return r.evolutions(ctx, name, evolution.Reverse)
}

func (r *Resolver) evolutions(ctx context.Context, name string, dir evolution.Direction) []evolution.Edge {
	name = cache.NormalizeKey(name)
	if name == "" {
		return []evolution.Edge{}
	}

	lookup, store, fetch := r.cache.ForwardEdges, r.cache.SetForwardEdges, r.fetcher.FetchForward
	if dir == evolution.Reverse {
		lookup, store, fetch = r.cache.ReverseEdges, r.cache.SetReverseEdges, r.fetcher.FetchReverse
	}

	if edges, ok := lookup(name); ok {
		return edges
	}

	v, err := r.share(ctx, string(dir)+":"+name, func(ctx context.Context) (any, error) {
		opts, err := fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		edges := toEdges(name, dir, opts)
		store(name, edges)
		return edges, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return []evolution.Edge{}
		}
		r.logger.Warn("evolution lookup failed",
			zap.String("species", name),
			zap.String("direction", string(dir)),
			zap.Error(err),
		)
		return []evolution.Edge{}
	}

	shared := v.([]evolution.Edge)
	out := make([]evolution.Edge, len(shared))
	copy(out, shared)
	return out
}

// share runs fn once per key for all concurrent callers. fn gets a context
// that keeps the caller's values but not its cancellation, so one caller
// giving up cannot fail the others; each caller stops waiting when its own
// ctx is done. The fetch itself stays bounded by the client timeout.
func (r *Resolver) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := r.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func toEdges(from string, dir evolution.Direction, opts []EvolutionOption) []evolution.Edge {
	edges := make([]evolution.Edge, 0, len(opts))
	for _, o := range opts {
		edges = append(edges, evolution.Edge{
			From:      evolution.SpeciesRef{Name: from},
			To:        evolution.SpeciesRef{Name: o.Name},
			Direction: dir,
			FamilyTag: o.Type,
		})
	}
	return edges
}

// Image returns the image URL of name, or "" if it has none. Errors are
// returned uncached.
func (r *Resolver) Image(ctx context.Context, name string) (string, error) {
	name = cache.NormalizeKey(name)
	if name == "" {
		return "", nil
	}
	if img, ok := r.cache.Image(name); ok {
		return img, nil
	}

	v, err := r.share(ctx, "image:"+name, func(ctx context.Context) (any, error) {
		images, err := r.fetcher.Images(ctx, []string{name})
		if err != nil {
			return nil, err
		}
		url := images[name].ImageURL
		r.cache.SetImage(name, url)
		return url, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Species resolves name into a SpeciesRef with its image.
func (r *Resolver) Species(ctx context.Context, name string) (evolution.SpeciesRef, error) {
	name = cache.NormalizeKey(name)
	if name == "" {
		return evolution.SpeciesRef{}, evolution.ErrInvalidSpecies
	}
	img, err := r.Image(ctx, name)
	if err != nil {
		return evolution.SpeciesRef{Name: name}, err
	}
	return evolution.SpeciesRef{Name: name, Image: img}, nil
}

// Search returns up to the configured limit of species matching query.
func (r *Resolver) Search(ctx context.Context, query string) ([]evolution.SpeciesRef, error) {
	key := cache.NormalizeKey(query)
	if key == "" {
		return []evolution.SpeciesRef{}, nil
	}
	if refs, ok := r.cache.SearchResults(key); ok {
		return refs, nil
	}

	v, err := r.share(ctx, "search:"+key, func(ctx context.Context) (any, error) {
		found, err := r.fetcher.Search(ctx, key)
		if err != nil {
			return nil, err
		}
		refs := make([]evolution.SpeciesRef, 0, r.searchLimit)
		for _, n := range found {
			if len(refs) == r.searchLimit {
				break
			}
			if n = strings.TrimSpace(n); n != "" {
				refs = append(refs, evolution.SpeciesRef{Name: n})
			}
		}
		r.cache.SetSearchResults(key, refs)
		return refs, nil
	})
	if err != nil {
		r.logger.Warn("species search failed", zap.String("query", key), zap.Error(err))
		return nil, err
	}

	shared := v.([]evolution.SpeciesRef)
	out := make([]evolution.SpeciesRef, len(shared))
	copy(out, shared)
	return out, nil
}
