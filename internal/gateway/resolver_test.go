package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/evodex/internal/cache"
	"github.com/ziadkadry99/evodex/internal/evolution"
)

type stubFetcher struct {
	mu      sync.Mutex
	forward map[string][]EvolutionOption
	reverse map[string][]EvolutionOption
	search  map[string][]string
	images  map[string]string
	err     error
	calls   map[string]int
	delay   time.Duration
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		forward: map[string][]EvolutionOption{},
		reverse: map[string][]EvolutionOption{},
		search:  map[string][]string{},
		images:  map[string]string{},
		calls:   map[string]int{},
	}
}

func (s *stubFetcher) record(ctx context.Context, key string) error {
	s.mu.Lock()
	s.calls[key]++
	err, delay := s.err, s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *stubFetcher) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *stubFetcher) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubFetcher) FetchForward(ctx context.Context, name string) ([]EvolutionOption, error) {
	if err := s.record(ctx, "forward:" + name); err != nil {
		return nil, err
	}
	return append([]EvolutionOption{}, s.forward[name]...), nil
}

func (s *stubFetcher) FetchReverse(ctx context.Context, name string) ([]EvolutionOption, error) {
	if err := s.record(ctx, "reverse:" + name); err != nil {
		return nil, err
	}
	return append([]EvolutionOption{}, s.reverse[name]...), nil
}

func (s *stubFetcher) Search(ctx context.Context, query string) ([]string, error) {
	if err := s.record(ctx, "search:" + query); err != nil {
		return nil, err
	}
	return append([]string{}, s.search[query]...), nil
}

func (s *stubFetcher) Images(ctx context.Context, names []string) (map[string]ImageInfo, error) {
	out := map[string]ImageInfo{}
	for _, n := range names {
		if err := s.record(ctx, "images:" + n); err != nil {
			return nil, err
		}
		if url := s.images[n]; url != "" {
			out[n] = ImageInfo{ImageURL: url}
		}
	}
	return out, nil
}

func TestResolver_EdgesAreCached(t *testing.T) {
	f := newStubFetcher()
	f.forward["Eevee"] = []EvolutionOption{{Name: "Vaporeon"}, {Name: "Jolteon", Type: "pokemon"}}
	r := NewResolver(f, cache.New())

	first := r.ForwardEvolutions(context.Background(), "Eevee")
	second := r.ForwardEvolutions(context.Background(), "  Eevee ")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.count("forward:Eevee"))
	require.Len(t, first, 2)
	assert.Equal(t, evolution.Edge{
		From:      evolution.SpeciesRef{Name: "Eevee"},
		To:        evolution.SpeciesRef{Name: "Jolteon"},
		Direction: evolution.Forward,
		FamilyTag: "pokemon",
	}, first[1])
}

func TestResolver_EmptyResultIsCached(t *testing.T) {
	f := newStubFetcher()
	r := NewResolver(f, cache.New())

	for i := 0; i < 3; i++ {
		edges := r.ReverseEvolutions(context.Background(), "Mew")
		assert.NotNil(t, edges)
		assert.Empty(t, edges)
	}
	assert.Equal(t, 1, f.count("reverse:Mew"))
	assert.Equal(t, 1, r.Cache().Len(cache.ReverseEdges))
}

func TestResolver_FailuresAreNotCached(t *testing.T) {
	f := newStubFetcher()
	f.forward["Eevee"] = []EvolutionOption{{Name: "Vaporeon"}}
	f.setErr(errors.New("gateway down"))
	r := NewResolver(f, cache.New())

	edges := r.ForwardEvolutions(context.Background(), "Eevee")
	assert.Empty(t, edges)
	assert.Equal(t, 0, r.Cache().Len(cache.ForwardEdges))

	f.setErr(nil)
	edges = r.ForwardEvolutions(context.Background(), "Eevee")
	require.Len(t, edges, 1)
	assert.Equal(t, 2, f.count("forward:Eevee"))
}

func TestResolver_EmptyNameSkipsGateway(t *testing.T) {
	f := newStubFetcher()
	r := NewResolver(f, cache.New())

	assert.Empty(t, r.ForwardEvolutions(context.Background(), "  "))
	img, err := r.Image(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, img)
	_, err = r.Species(context.Background(), " ")
	assert.ErrorIs(t, err, evolution.ErrInvalidSpecies)
	refs, err := r.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, refs)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.calls)
}

func TestResolver_ConcurrentLookupsShareOneFetch(t *testing.T) {
	f := newStubFetcher()
	f.delay = 20 * time.Millisecond
	f.forward["Eevee"] = []EvolutionOption{{Name: "Vaporeon"}}
	r := NewResolver(f, cache.New())

	var wg sync.WaitGroup
	var total atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			total.Add(int32(len(r.ForwardEvolutions(context.Background(), "Eevee"))))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), total.Load())
	assert.Equal(t, 1, f.count("forward:Eevee"))
}

func TestResolver_CancelledCallerDoesNotFailSharers(t *testing.T) {
	f := newStubFetcher()
	f.delay = 100 * time.Millisecond
	f.forward["Agumon"] = []EvolutionOption{{Name: "Greymon", Type: "digimon"}}
	r := NewResolver(f, cache.New())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan []evolution.Edge, 1)
	go func() { first <- r.ForwardEvolutions(ctx, "Agumon") }()
	require.Eventually(t, func() bool { return f.count("forward:Agumon") == 1 }, time.Second, time.Millisecond)

	second := make(chan []evolution.Edge, 1)
	go func() { second <- r.ForwardEvolutions(context.Background(), "Agumon") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Empty(t, <-first)
	edges := <-second
	require.Len(t, edges, 1)
	assert.Equal(t, "digimon", edges[0].FamilyTag)
	assert.Equal(t, 1, f.count("forward:Agumon"))
	assert.Equal(t, 1, r.Cache().Len(cache.ForwardEdges))
}

func TestResolver_CancelledBuildKeepsOtherBuildCollapsed(t *testing.T) {
	f := newStubFetcher()
	f.delay = 100 * time.Millisecond
	f.forward["Agumon"] = []EvolutionOption{{Name: "Greymon", Type: "digimon"}}
	f.forward["Greymon"] = []EvolutionOption{{Name: "MetalGreymon", Type: "digimon"}}
	f.reverse["Greymon"] = []EvolutionOption{{Name: "Agumon", Type: "digimon"}}
	f.reverse["MetalGreymon"] = []EvolutionOption{{Name: "Greymon", Type: "digimon"}}
	r := NewResolver(f, cache.New())
	b := evolution.NewBuilder(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := b.Build(ctx, "Agumon", evolution.NewExpansionSet())
		cancelled <- err
	}()
	require.Eventually(t, func() bool { return f.count("forward:Agumon") == 1 }, 2*time.Second, time.Millisecond)

	type outcome struct {
		res *evolution.Result
		err error
	}
	live := make(chan outcome, 1)
	go func() {
		res, err := b.Build(context.Background(), "Agumon", evolution.NewExpansionSet())
		live <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-cancelled, context.Canceled)
	got := <-live
	require.NoError(t, got.err)
	assert.True(t, got.res.FamilyLarge)
	assert.Equal(t, 1, got.res.DepthLimit)
	require.Len(t, got.res.Forward, 1)
	assert.Equal(t, "Greymon", got.res.Forward[0].Species.Name)
	assert.Empty(t, got.res.Forward[0].Children)
}

func TestResolver_CancelledSearchDoesNotFailSharers(t *testing.T) {
	f := newStubFetcher()
	f.delay = 100 * time.Millisecond
	f.search["agu"] = []string{"Agumon"}
	r := NewResolver(f, cache.New())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Search(ctx, "agu")
		first <- err
	}()
	require.Eventually(t, func() bool { return f.count("search:agu") == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		refs []evolution.SpeciesRef
		err  error
	}
	second := make(chan outcome, 1)
	go func() {
		refs, err := r.Search(context.Background(), "agu")
		second <- outcome{refs, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-first, context.Canceled)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, []evolution.SpeciesRef{{Name: "Agumon"}}, got.refs)
	assert.Equal(t, 1, f.count("search:agu"))
}

func TestResolver_Image(t *testing.T) {
	f := newStubFetcher()
	f.images["Pikachu"] = "https://img/pikachu.png"
	r := NewResolver(f, cache.New())

	img, err := r.Image(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, "https://img/pikachu.png", img)

	// A species without an image is remembered as such.
	for i := 0; i < 2; i++ {
		img, err = r.Image(context.Background(), "Missingno")
		require.NoError(t, err)
		assert.Empty(t, img)
	}
	assert.Equal(t, 1, f.count("images:Missingno"))

	ref, err := r.Species(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, evolution.SpeciesRef{Name: "Pikachu", Image: "https://img/pikachu.png"}, ref)
	assert.Equal(t, 1, f.count("images:Pikachu"))
}

func TestResolver_ImageFailureNotCached(t *testing.T) {
	f := newStubFetcher()
	f.images["Pikachu"] = "https://img/pikachu.png"
	f.setErr(errors.New("timeout"))
	r := NewResolver(f, cache.New())

	ref, err := r.Species(context.Background(), "Pikachu")
	require.Error(t, err)
	assert.Equal(t, "Pikachu", ref.Name)

	f.setErr(nil)
	img, err := r.Image(context.Background(), "Pikachu")
	require.NoError(t, err)
	assert.Equal(t, "https://img/pikachu.png", img)
}

func TestResolver_SearchLimitAndCache(t *testing.T) {
	f := newStubFetcher()
	f.search["char"] = []string{"Charmander", "", "Charmeleon", " Charizard ", "Charjabug"}
	r := NewResolver(f, cache.New(), WithSearchLimit(3))

	refs, err := r.Search(context.Background(), " char ")
	require.NoError(t, err)
	assert.Equal(t, []evolution.SpeciesRef{{Name: "Charmander"}, {Name: "Charmeleon"}, {Name: "Charizard"}}, refs)

	again, err := r.Search(context.Background(), "char")
	require.NoError(t, err)
	assert.Equal(t, refs, again)
	assert.Equal(t, 1, f.count("search:char"))
}

func TestResolver_SearchFailureReturnsError(t *testing.T) {
	f := newStubFetcher()
	f.setErr(errors.New("down"))
	r := NewResolver(f, cache.New())

	_, err := r.Search(context.Background(), "pika")
	require.Error(t, err)

	f.setErr(nil)
	refs, err := r.Search(context.Background(), "pika")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, 2, f.count("search:pika"))
}

func TestResolver_BuildsTreeThroughHTTP(t *testing.T) {
	g, srv := newFakeGateway(t)
	g.json("/evolution/options/Charmander", http.StatusOK, `{"success":true,"data":[{"name":"Charmeleon"}]}`)
	g.json("/evolution/options/Charmeleon", http.StatusOK, `{"success":true,"data":[{"name":"Charizard"}]}`)
	g.json("/evolution/options/Charizard", http.StatusOK, `{"success":true,"data":[]}`)
	for _, n := range []string{"Charmander", "Charmeleon", "Charizard"} {
		g.json("/evolution/reverse/"+n, http.StatusOK, `{"success":true,"data":[]}`)
	}
	g.json("/species/images", http.StatusOK, `{"success":true,"images":[]}`)

	r := NewResolver(NewClient(Config{BaseURL: srv.URL}), cache.New())
	b := evolution.NewBuilder(r)

	res, err := b.Build(context.Background(), "Charmander", evolution.ExpansionSet{})
	require.NoError(t, err)
	require.Len(t, res.Forward, 1)
	assert.Equal(t, "Charmeleon", res.Forward[0].Species.Name)
	require.Len(t, res.Forward[0].Children, 1)
	assert.Equal(t, "Charizard", res.Forward[0].Children[0].Species.Name)
	assert.Empty(t, res.Reverse)

	// A rebuild is served entirely from the cache.
	_, err = b.Build(context.Background(), "Charmander", evolution.ExpansionSet{})
	require.NoError(t, err)
	assert.Equal(t, 1, g.count("/evolution/options/Charmeleon"))
	assert.Equal(t, 1, g.count("/evolution/reverse/Charmander"))
}
