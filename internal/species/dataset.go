package species

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/evodex/internal/progress"
)

// Dataset is the YAML seed format:
//
//	species:
//	  - name: Eevee
//	    image: https://...
//	    family: pokemon
//	    evolves_to: [Vaporeon, Jolteon]
type Dataset struct {
	Species []Entry `yaml:"species"`
}

// Entry is one species in a Dataset.
type Entry struct {
	Name      string   `yaml:"name"`
	Image     string   `yaml:"image,omitempty"`
	Family    string   `yaml:"family,omitempty"`
	EvolvesTo []string `yaml:"evolves_to,omitempty"`
}

// ImportStats reports what Import wrote.
type ImportStats struct {
	Species    int
	Evolutions int
}

// LoadDataset reads and validates a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return &ds, nil
}

// Validate checks that every entry is named once and every evolution
// target is itself an entry.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Species))
	for i, e := range d.Species {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("entry %d: %w", i, ErrEmptyName)
		}
		if seen[name] {
			return fmt.Errorf("duplicate species %q", name)
		}
		seen[name] = true
	}
	for _, e := range d.Species {
		for _, to := range e.EvolvesTo {
			if !seen[strings.TrimSpace(to)] {
				return fmt.Errorf("%s evolves to unknown species %q", strings.TrimSpace(e.Name), to)
			}
		}
	}
	return nil
}

func (d *Dataset) edgeCount() int {
	n := 0
	for _, e := range d.Species {
		n += len(e.EvolvesTo)
	}
	return n
}

// Import writes the dataset into store: every species first, then every
// evolution. r receives one step per row written.
func Import(ctx context.Context, store *Store, ds *Dataset, r progress.Reporter) (ImportStats, error) {
	if r == nil {
		r = progress.Nop{}
	}
	var stats ImportStats
	if err := ds.Validate(); err != nil {
		return stats, err
	}

	total := len(ds.Species) + ds.edgeCount()
	r.Start(total)
	defer r.Finish()

	step := 0
	for _, e := range ds.Species {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := store.UpsertSpecies(ctx, Species{Name: e.Name, ImageURL: e.Image, Family: e.Family}); err != nil {
			return stats, err
		}
		stats.Species++
		step++
		r.Update(step, strings.TrimSpace(e.Name))
	}

	for _, e := range ds.Species {
		for _, to := range e.EvolvesTo {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := store.AddEvolution(ctx, e.Name, to); err != nil {
				return stats, err
			}
			stats.Evolutions++
			step++
			r.Update(step, fmt.Sprintf("%s -> %s", strings.TrimSpace(e.Name), strings.TrimSpace(to)))
		}
	}
	return stats, nil
}
