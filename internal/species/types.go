// Package species is the reference species/evolution gateway: a sqlite
// catalogue seeded from a YAML dataset and served over the HTTP contract
// the explorer consumes.
package species

import "errors"

var (
	// ErrNotFound is returned when a species is not in the catalogue.
	ErrNotFound = errors.New("species not found")
	// ErrEmptyName is returned for blank species names.
	ErrEmptyName = errors.New("species name is required")
)

// Species is one catalogue entry.
type Species struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
	Family   string `json:"family,omitempty"`
}

// EvolutionOption is one neighbour in an evolution list. Type is the
// neighbour's family.
type EvolutionOption struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Counts summarises the catalogue.
type Counts struct {
	Species    int `json:"species"`
	Evolutions int `json:"evolutions"`
}

type evolutionResponse struct {
	Success bool              `json:"success"`
	Data    []EvolutionOption `json:"data"`
	Message string            `json:"message,omitempty"`
}

type searchResponse struct {
	Success bool     `json:"success"`
	Species []string `json:"species"`
	Message string   `json:"message,omitempty"`
}

type imageEntry struct {
	Species string `json:"species"`
	URL     string `json:"url"`
}

type imagesResponse struct {
	Success bool         `json:"success"`
	Images  []imageEntry `json:"images"`
	Message string       `json:"message,omitempty"`
}
