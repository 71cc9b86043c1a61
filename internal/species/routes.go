package species

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"
)

// MaxSearchResults caps /species/search responses.
const MaxSearchResults = 50

// RegisterRoutes mounts the species gateway endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/species/search", searchHandler(store))
	r.Get("/species/images", imagesHandler(store))
	r.Get("/evolution/options/{name}", forwardHandler(store))
	r.Get("/evolution/reverse/{name}", reverseHandler(store))
}

func searchHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := store.Search(r.Context(), r.URL.Query().Get("query"), MaxSearchResults)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, doublestar.ErrBadPattern) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, searchResponse{Success: false, Species: []string{}, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Success: true, Species: names})
	}
}

func imagesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := splitNames(r.URL.Query().Get("species"))
		found, err := store.Images(r.Context(), names)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, imagesResponse{Success: false, Images: []imageEntry{}, Message: err.Error()})
			return
		}
		images := make([]imageEntry, 0, len(found))
		for _, n := range names {
			if u, ok := found[n]; ok {
				images = append(images, imageEntry{Species: n, URL: u})
			}
		}
		writeJSON(w, http.StatusOK, imagesResponse{Success: true, Images: images})
	}
}

func forwardHandler(store *Store) http.HandlerFunc {
	return evolutionHandler(store.Forward)
}

func reverseHandler(store *Store) http.HandlerFunc {
	return evolutionHandler(store.Reverse)
}

func evolutionHandler(lookup func(ctx context.Context, name string) ([]EvolutionOption, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := pathName(r, "name")
		if name == "" {
			writeJSON(w, http.StatusBadRequest, evolutionResponse{Success: false, Data: []EvolutionOption{}, Message: ErrEmptyName.Error()})
			return
		}
		opts, err := lookup(r.Context(), name)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, evolutionResponse{Success: false, Data: []EvolutionOption{}, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, evolutionResponse{Success: true, Data: opts})
	}
}

// pathName returns the decoded, trimmed URL parameter. chi matches on the
// raw path when the request has one, so names containing "%2F" arrive
// still escaped.
func pathName(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}

func splitNames(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
