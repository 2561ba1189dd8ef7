package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamgate/internal/genome"
)

func TestTemplateSource_OneCandidatePerLigand(t *testing.T) {
	e := genome.NewExtractor(nil)
	g := e.Extract("Maria stood in the kitchen, knowing she must decide before morning.", "")
	require.NotEmpty(t, g.Ligands)

	candidates, err := TemplateSource{}.Propose(context.Background(), g, nil)
	require.NoError(t, err)
	require.Len(t, candidates, len(g.Ligands))

	for i, c := range candidates {
		assert.Same(t, g.Ligands[i], c.TargetLigand)
		assert.Equal(t, g.Ligands[i].DepthLevel+1, c.ProposedDepth)
		assert.Equal(t, g.ToneVector, c.EmotionalTone)
		assert.NotEmpty(t, c.Content)
	}
}

func TestTemplateSource_ObligationCandidates(t *testing.T) {
	lig, err := genome.NewLigand("obligation_0", genome.LigandObligationFulfillment,
		"fulfill: decide before morning", nil, "neutral", "decide before morning", 2)
	require.NoError(t, err)
	g := &genome.ConstraintGenome{
		ToneVector: "neutral",
		Ligands:    []*genome.Ligand{lig},
	}

	candidates, err := TemplateSource{}.Propose(context.Background(), g, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "To decide before morning, the character took deliberate action.", c.Content)
	assert.Equal(t, []string{"decide before morning"}, c.ObligationsAddressed)
	assert.Equal(t, 3, c.ProposedDepth)
}

func TestTemplateSource_SettingDetailTemplate(t *testing.T) {
	lig, err := genome.NewLigand("setting_detail_0_0", genome.LigandSettingDetail,
		"the kitchen", []string{"kitchen"}, "neutral", "", 1)
	require.NoError(t, err)
	g := &genome.ConstraintGenome{ToneVector: "neutral", Ligands: []*genome.Ligand{lig}}

	candidates, err := TemplateSource{}.Propose(context.Background(), g, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "The the kitchen held significance beyond its immediate appearance.", candidates[0].Content)
	assert.Empty(t, candidates[0].ObligationsAddressed)
}

func TestParseCandidates_PairsLinesWithLigands(t *testing.T) {
	lig1, err := genome.NewLigand("a", genome.LigandSettingDetail, "the kitchen", nil, "neutral", "", 1)
	require.NoError(t, err)
	lig2, err := genome.NewLigand("b", genome.LigandObligationFulfillment, "fulfill: decide", nil, "neutral", "decide", 2)
	require.NoError(t, err)
	g := &genome.ConstraintGenome{ToneVector: "neutral", Ligands: []*genome.Ligand{lig1, lig2}}

	text := "- The kitchen waited in silence.\n\nShe made her decision at last.\nAn extra line beyond the ligands.\n"
	candidates := parseCandidates(text, g)

	require.Len(t, candidates, 2, "extra lines are dropped")
	assert.Equal(t, "The kitchen waited in silence.", candidates[0].Content)
	assert.Same(t, lig1, candidates[0].TargetLigand)
	assert.Equal(t, "She made her decision at last.", candidates[1].Content)
	assert.Equal(t, []string{"decide"}, candidates[1].ObligationsAddressed)
}

func TestBuildPrompt_StatesConstraints(t *testing.T) {
	e := genome.NewExtractor(nil)
	g := e.Extract("Maria must decide before morning. She stood in the kitchen.", "")

	prompt := buildPrompt(g, []string{"She looked at the letter."})
	assert.Contains(t, prompt, g.SeedText)
	assert.Contains(t, prompt, "Introduce no others")
	assert.Contains(t, prompt, "She looked at the letter.")
	for _, o := range g.Obligations {
		assert.Contains(t, prompt, o)
	}
}
