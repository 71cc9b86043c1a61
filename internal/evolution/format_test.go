package evolution

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTree(t *testing.T) {
	src := newFakeSource()
	src.link("Charmander", "", "Charmeleon")
	src.link("Charmeleon", "", "Charizard")

	res, err := NewBuilder(src).Build(context.Background(), "Charmander", NewExpansionSet())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTree(&buf, res))
	assert.Equal(t, "Charmander\n"+
		"evolves from:\n"+
		"  (none)\n"+
		"evolves into:\n"+
		"  - Charmeleon\n"+
		"    - Charizard\n", buf.String())
}

func TestWriteTree_LargeFamilyHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTree(&buf, &Result{
		Species:     SpeciesRef{Name: "Agumon"},
		FamilyLarge: true,
		DepthLimit:  1,
	}))
	assert.Contains(t, buf.String(), "Agumon (large family, collapsed to depth 1)\n")

	buf.Reset()
	require.NoError(t, WriteTree(&buf, &Result{
		Species:     SpeciesRef{Name: "Agumon"},
		FamilyLarge: true,
		Expanded:    true,
		DepthLimit:  8,
	}))
	assert.Contains(t, buf.String(), "Agumon (large family, expanded)\n")
}

func TestWriteLevels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLevels(&buf, [][]SpeciesRef{
		{{Name: "Eevee"}},
		{{Name: "Vaporeon"}, {Name: "Jolteon"}},
	}))
	assert.Equal(t, "1: Eevee\n2: Vaporeon, Jolteon\n", buf.String())
}
