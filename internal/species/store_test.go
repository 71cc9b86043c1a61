package species

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ziadkadry99/evodex/internal/db"
	"github.com/ziadkadry99/evodex/internal/progress"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

// seedSample loads testdata/species.yml into a fresh store.
func seedSample(t *testing.T) *Store {
	t.Helper()
	store := setupTestStore(t)
	ds, err := LoadDataset(filepath.Join("..", "..", "testdata", "species.yml"))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if _, err := Import(context.Background(), store, ds, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return store
}

func names(opts []EvolutionOption) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Name
	}
	return out
}

// --- Store tests ---

func TestUpsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.UpsertSpecies(ctx, Species{Name: " Eevee ", Family: "pokemon"}); err != nil {
		t.Fatalf("UpsertSpecies: %v", err)
	}
	if err := store.UpsertSpecies(ctx, Species{Name: "Eevee", ImageURL: "https://img/eevee.png", Family: "pokemon"}); err != nil {
		t.Fatalf("UpsertSpecies update: %v", err)
	}

	got, err := store.Get(ctx, "Eevee")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := &Species{Name: "Eevee", ImageURL: "https://img/eevee.png", Family: "pokemon"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	if _, err := store.Get(ctx, "Missingno"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown: err = %v, want ErrNotFound", err)
	}
	if err := store.UpsertSpecies(ctx, Species{Name: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("UpsertSpecies blank: err = %v, want ErrEmptyName", err)
	}
}

func TestAddEvolution(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	for _, sp := range []Species{
		{Name: "Eevee", Family: "pokemon"},
		{Name: "Vaporeon", Family: "pokemon"},
		{Name: "Jolteon", Family: "pokemon"},
	} {
		if err := store.UpsertSpecies(ctx, sp); err != nil {
			t.Fatalf("UpsertSpecies: %v", err)
		}
	}

	for _, to := range []string{"Vaporeon", "Jolteon", "Vaporeon"} {
		if err := store.AddEvolution(ctx, "Eevee", to); err != nil {
			t.Fatalf("AddEvolution(%s): %v", to, err)
		}
	}
	if err := store.AddEvolution(ctx, "Eevee", "Missingno"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddEvolution to unknown: err = %v, want ErrNotFound", err)
	}

	fwd, err := store.Forward(ctx, "Eevee")
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	want := []EvolutionOption{{Name: "Vaporeon", Type: "pokemon"}, {Name: "Jolteon", Type: "pokemon"}}
	if !reflect.DeepEqual(fwd, want) {
		t.Errorf("Forward = %+v, want %+v", fwd, want)
	}

	rev, err := store.Reverse(ctx, "Jolteon")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if !reflect.DeepEqual(rev, []EvolutionOption{{Name: "Eevee", Type: "pokemon"}}) {
		t.Errorf("Reverse = %+v", rev)
	}

	none, err := store.Forward(ctx, "Missingno")
	if err != nil {
		t.Fatalf("Forward unknown: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("Forward unknown = %#v, want empty non-nil slice", none)
	}
}

func TestSearchSubstringRanking(t *testing.T) {
	store := seedSample(t)

	got, err := store.Search(context.Background(), "char", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// All three share the prefix; shorter edit distance wins.
	want := []string{"Charizard", "Charmander", "Charmeleon"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(char) = %v, want %v", got, want)
	}

	got, err = store.Search(context.Background(), "greymon", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want = []string{"Greymon", "GeoGreymon", "WarGreymon", "RizeGreymon", "MetalGreymon"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(greymon) = %v, want %v", got, want)
	}
}

func TestSearchWildcard(t *testing.T) {
	store := seedSample(t)

	got, err := store.Search(context.Background(), "*eon", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Eight Eevee evolutions plus Charmeleon.
	if len(got) != 9 {
		t.Errorf("Search(*eon) returned %d names, want 9: %v", len(got), got)
	}

	got, err = store.Search(context.Background(), "Pi?hu", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Pichu"}) {
		t.Errorf("Search(Pi?hu) = %v", got)
	}

	if _, err := store.Search(context.Background(), "[abc", 0); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestSearchLimitAndEmpty(t *testing.T) {
	store := seedSample(t)

	got, err := store.Search(context.Background(), "eon", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("limit: got %d results, want 3", len(got))
	}

	got, err = store.Search(context.Background(), "   ", 3)
	if err != nil {
		t.Fatalf("Search blank: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search blank = %#v, want empty non-nil slice", got)
	}
}

func TestImages(t *testing.T) {
	store := seedSample(t)

	got, err := store.Images(context.Background(), []string{"Pikachu", "Mime Jr.", "Missingno", " "})
	if err != nil {
		t.Fatalf("Images: %v", err)
	}
	want := map[string]string{"Pikachu": "https://img.example.com/pikachu.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Images = %v, want %v", got, want)
	}
}

// --- Dataset tests ---

type countingReporter struct {
	total, last int
	finished    bool
}

func (r *countingReporter) Start(total int) { r.total = total }
func (r *countingReporter) Update(current int, _ string) { r.last = current }
func (r *countingReporter) Finish() { r.finished = true }

var _ progress.Reporter = (*countingReporter)(nil)

func TestImportSample(t *testing.T) {
	store := setupTestStore(t)
	ds, err := LoadDataset(filepath.Join("..", "..", "testdata", "species.yml"))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	rep := &countingReporter{}
	stats, err := Import(context.Background(), store, ds, rep)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Species != len(ds.Species) {
		t.Errorf("imported %d species, want %d", stats.Species, len(ds.Species))
	}
	if rep.total != stats.Species+stats.Evolutions || rep.last != rep.total || !rep.finished {
		t.Errorf("reporter = %+v, stats = %+v", rep, stats)
	}

	counts, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts.Species != stats.Species || counts.Evolutions != stats.Evolutions {
		t.Errorf("Count = %+v, stats = %+v", counts, stats)
	}

	// Re-importing is idempotent.
	if _, err := Import(context.Background(), store, ds, nil); err != nil {
		t.Fatalf("second Import: %v", err)
	}
	again, _ := store.Count(context.Background())
	if again != counts {
		t.Errorf("Count after re-import = %+v, want %+v", again, counts)
	}
}

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
	}{
		{"blank name", Dataset{Species: []Entry{{Name: " "}}}},
		{"duplicate", Dataset{Species: []Entry{{Name: "Eevee"}, {Name: "Eevee"}}}},
		{"unknown target", Dataset{Species: []Entry{{Name: "Eevee", EvolvesTo: []string{"Missingno"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ds.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadDataset(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("species: [{name: Eevee, evolves_to: [Ghost]}]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(bad); err == nil {
		t.Error("expected error for dangling evolution")
	}
}

func TestImportCancelled(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ds := &Dataset{Species: []Entry{{Name: "Eevee"}}}
	if _, err := Import(ctx, store, ds, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Import cancelled: err = %v, want context.Canceled", err)
	}
}
