package evolution

import (
	"fmt"
	"io"
	"strings"
)

// WriteTree prints r as an indented outline: the root, then what it
// evolves from, then what it evolves into.
func WriteTree(w io.Writer, r *Result) error {
	if r == nil {
		return nil
	}
	header := r.Species.Name
	switch {
	case r.FamilyLarge && r.Expanded:
		header += " (large family, expanded)"
	case r.FamilyLarge:
		header += fmt.Sprintf(" (large family, collapsed to depth %d)", r.DepthLimit)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if err := writeSection(w, "evolves from", r.Reverse); err != nil {
		return err
	}
	return writeSection(w, "evolves into", r.Forward)
}

func writeSection(w io.Writer, title string, nodes []Node) error {
	if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
		return err
	}
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, "  (none)")
		return err
	}
	return writeNodes(w, nodes)
}

func writeNodes(w io.Writer, nodes []Node) error {
	for _, n := range nodes {
		if _, err := fmt.Fprintf(w, "%s- %s\n", strings.Repeat("  ", n.Depth), n.Species.Name); err != nil {
			return err
		}
		if err := writeNodes(w, n.Children); err != nil {
			return err
		}
	}
	return nil
}

// WriteLevels prints one generation per line, oldest first.
func WriteLevels(w io.Writer, levels [][]SpeciesRef) error {
	for i, level := range levels {
		names := make([]string, len(level))
		for j, s := range level {
			names[j] = s.Name
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", i+1, strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	return nil
}
