package species

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/evodex/internal/db"
)

// Store reads and writes the species catalogue.
type Store struct {
	db *db.DB
}

// NewStore creates a new species store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// UpsertSpecies inserts sp or updates its image and family.
func (s *Store) UpsertSpecies(ctx context.Context, sp Species) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return ErrEmptyName
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO species (name, image_url, family) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		     image_url = excluded.image_url,
		     family = excluded.family,
		     updated_at = datetime('now')`,
		sp.Name, strings.TrimSpace(sp.ImageURL), strings.TrimSpace(sp.Family),
	)
	if err != nil {
		return fmt.Errorf("upserting species %q: %w", sp.Name, err)
	}
	return nil
}

// Get returns the named species.
func (s *Store) Get(ctx context.Context, name string) (*Species, error) {
	sp := &Species{}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, image_url, family FROM species WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&sp.Name, &sp.ImageURL, &sp.Family)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting species %q: %w", name, err)
	}
	return sp, nil
}

// AddEvolution records that from evolves into to. Both species must exist.
// Edges keep the order they were added in; adding an existing edge is a
// no-op.
func (s *Store) AddEvolution(ctx context.Context, from, to string) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return ErrEmptyName
	}
	target, err := s.Get(ctx, to)
	if err != nil {
		return fmt.Errorf("evolution %s -> %s: %w", from, to, err)
	}
	if _, err := s.Get(ctx, from); err != nil {
		return fmt.Errorf("evolution %s -> %s: %w", from, to, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO evolutions (from_name, to_name, family, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM evolutions WHERE from_name = ?))`,
		from, to, target.Family, from,
	)
	if err != nil {
		return fmt.Errorf("adding evolution %s -> %s: %w", from, to, err)
	}
	return nil
}

// Forward returns what name evolves into, in insertion order. Unknown
// species have no evolutions.
func (s *Store) Forward(ctx context.Context, name string) ([]EvolutionOption, error) {
	return s.options(ctx,
		`SELECT to_name, family FROM evolutions WHERE from_name = ? ORDER BY position, to_name`,
		name)
}

// Reverse returns what name evolves from.
func (s *Store) Reverse(ctx context.Context, name string) ([]EvolutionOption, error) {
	return s.options(ctx,
		`SELECT e.from_name, sp.family
		 FROM evolutions e JOIN species sp ON sp.name = e.from_name
		 WHERE e.to_name = ? ORDER BY e.rowid`,
		name)
}

func (s *Store) options(ctx context.Context, query, name string) ([]EvolutionOption, error) {
	rows, err := s.db.QueryContext(ctx, query, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("querying evolutions of %q: %w", name, err)
	}
	defer rows.Close()

	out := []EvolutionOption{}
	for rows.Next() {
		var o EvolutionOption
		if err := rows.Scan(&o.Name, &o.Type); err != nil {
			return nil, fmt.Errorf("scanning evolution: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// IsPattern reports whether query is a wildcard pattern rather than a name
// fragment.
func IsPattern(query string) bool {
	return strings.ContainsAny(query, "*?[")
}

// Search returns species names matching query. A query containing
// wildcards is matched against whole names (case-insensitive); any other
// query matches names containing it. Results are ranked prefix matches
// first, then by edit distance to the query, then by name. limit <= 0
// means no limit.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []string{}, nil
	}

	pattern := IsPattern(q)
	if pattern && !doublestar.ValidatePattern(q) {
		return nil, fmt.Errorf("invalid search pattern %q: %w", query, doublestar.ErrBadPattern)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if pattern {
		rows, err = s.db.QueryContext(ctx, `SELECT name FROM species`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT name FROM species WHERE instr(lower(name), ?) > 0`, q)
	}
	if err != nil {
		return nil, fmt.Errorf("searching species: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning species: %w", err)
		}
		if pattern {
			ok, err := doublestar.Match(q, strings.ToLower(n))
			if err != nil || !ok {
				continue
			}
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rankMatches(names, strings.TrimRight(q, "*?"))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// rankMatches orders names by prefix match, then edit distance, then name.
func rankMatches(names []string, q string) {
	type ranked struct {
		prefix bool
		dist   int
	}
	ranks := make(map[string]ranked, len(names))
	for _, n := range names {
		lower := strings.ToLower(n)
		ranks[n] = ranked{
			prefix: strings.HasPrefix(lower, q),
			dist:   levenshtein.ComputeDistance(q, lower),
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := ranks[names[i]], ranks[names[j]]
		if a.prefix != b.prefix {
			return a.prefix
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return names[i] < names[j]
	})
}

// Images returns image URLs keyed by species name. Unknown species and
// species without an image are omitted.
func (s *Store) Images(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string)
	var args []any
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			args = append(args, n)
		}
	}
	if len(args) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, image_url FROM species WHERE image_url != '' AND name IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, url string
		if err := rows.Scan(&name, &url); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		out[name] = url
	}
	return out, rows.Err()
}

// Count returns the number of species and evolution edges.
func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM species), (SELECT COUNT(*) FROM evolutions)`,
	).Scan(&c.Species, &c.Evolutions)
	if err != nil {
		return Counts{}, fmt.Errorf("counting catalogue: %w", err)
	}
	return c, nil
}
