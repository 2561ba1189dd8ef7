package genome

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSeed = "Maria stood in the empty kitchen, holding her grandmother's letter."
	testBeat = "She must decide whether to sell the house or honor her grandmother's wishes."
)

func TestExtract_MariaScenario(t *testing.T) {
	e := NewExtractor(nil)
	g := e.Extract(testSeed, testBeat)

	// Obligation derived from "must decide ..."
	require.NotEmpty(t, g.Obligations)
	found := false
	for _, o := range g.Obligations {
		if strings.HasPrefix(o, "decide") {
			found = true
		}
	}
	assert.True(t, found, "expected an obligation derived from 'must decide', got %v", g.Obligations)

	assert.Contains(t, g.Characters, "Maria")
	assert.NotContains(t, g.Characters, "She", "pronouns are stop-listed")
	assert.Equal(t, "neutral", g.ToneVector)
	assert.NotEmpty(t, g.Ligands)

	// Scope entities pick up location nouns and characters.
	assert.Contains(t, g.ScopeEntities, "kitchen")
	assert.Contains(t, g.ScopeEntities, "house")
	assert.Contains(t, g.ScopeEntities, "Maria")
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(nil)

	a := e.Extract(testSeed, testBeat)
	b := e.Extract(testSeed, testBeat)

	assert.Equal(t, a.Obligations, b.Obligations)
	assert.Equal(t, a.Characters, b.Characters)
	assert.Equal(t, a.ToneVector, b.ToneVector)
	assert.Equal(t, a.ScopeEntities, b.ScopeEntities)
	require.Equal(t, len(a.Ligands), len(b.Ligands))
	for i := range a.Ligands {
		assert.Equal(t, a.Ligands[i].ID, b.Ligands[i].ID)
		assert.Equal(t, a.Ligands[i].Content, b.Ligands[i].Content)
		assert.Equal(t, a.Ligands[i].Type, b.Ligands[i].Type)
	}
}

func TestExtract_EmptyInputFallsBack(t *testing.T) {
	e := NewExtractor(nil)
	g := e.Extract("", "")

	assert.Equal(t, []string{DefaultObligation}, g.Obligations)
	assert.Empty(t, g.Characters)
	assert.Equal(t, "neutral", g.ToneVector)

	// The default obligation still yields an obligation-fulfillment ligand,
	// so growth has somewhere to bind.
	obls := g.ObligationLigands()
	require.Len(t, obls, 1)
	assert.Equal(t, DefaultObligation, obls[0].ObligationAnchor)
	assert.Equal(t, 2, obls[0].DepthLevel)
}

func TestExtract_ToneClassification(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"positive majority", "A bright smile full of joy and hope.", "positive"},
		{"negative majority", "Dark fear and pain filled the room with despair.", "negative"},
		{"tie resolves neutral", "Hope mingled with fear.", "neutral"},
		{"no keywords", "The letter sat on the table.", "neutral"},
	}

	e := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := e.Extract(tt.text, "")
			assert.Equal(t, tt.want, g.ToneVector)
		})
	}
}

func TestExtract_ObligationDedup(t *testing.T) {
	e := NewExtractor(nil)
	g := e.Extract("She must leave. She must leave.", "")

	count := 0
	for _, o := range g.Obligations {
		if strings.HasPrefix(o, "leave") {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicate obligation phrases should collapse")
}

func TestExtract_LigandScopeSubset(t *testing.T) {
	e := NewExtractor(nil)
	g := e.Extract(testSeed, testBeat)

	inScope := make(map[string]struct{})
	for _, s := range g.ScopeEntities {
		inScope[s] = struct{}{}
	}
	for _, l := range g.Ligands {
		for _, s := range l.ScopeConstraints {
			_, ok := inScope[s]
			assert.True(t, ok, "ligand %s carries out-of-genome scope entity %q", l.ID, s)
		}
	}
}

func TestNewLigand_Invariants(t *testing.T) {
	_, err := NewLigand("x", LigandSettingDetail, "", nil, "neutral", "", 1)
	assert.Error(t, err, "empty content must be rejected")

	_, err = NewLigand("x", LigandSettingDetail, "the house", nil, "neutral", "", 0)
	assert.Error(t, err, "depth below range must be rejected")

	_, err = NewLigand("x", LigandSettingDetail, "the house", nil, "neutral", "", 6)
	assert.Error(t, err, "depth above range must be rejected")

	l, err := NewLigand("x", LigandSettingDetail, "the house", nil, "neutral", "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, l.DepthLevel)
}

func TestGenomeHelpers(t *testing.T) {
	e := NewExtractor(nil)
	g := e.Extract(testSeed, testBeat)

	setting := g.LigandsByType(LigandSettingDetail)
	assert.NotEmpty(t, setting, "beat mentions 'the house'")
	for _, l := range setting {
		assert.Equal(t, LigandSettingDetail, l.Type)
	}

	require.NotEmpty(t, g.Obligations)
	assert.True(t, g.HasObligation(g.Obligations[0]))
	assert.False(t, g.HasObligation("no such obligation"))
}
