package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamgate/internal/genome"
)

func testGenome(t *testing.T) *genome.ConstraintGenome {
	t.Helper()
	return &genome.ConstraintGenome{
		SeedText:      "Maria stood in the kitchen.",
		BeatText:      "She must decide.",
		Obligations:   []string{"decide"},
		Characters:    []string{"Maria"},
		ToneVector:    "neutral",
		ScopeEntities: []string{"kitchen", "house", "Maria"},
		Ligands:       nil,
	}
}

func testLigand(t *testing.T, anchor string, depth int) *genome.Ligand {
	t.Helper()
	typ := genome.LigandSettingDetail
	if anchor != "" {
		typ = genome.LigandObligationFulfillment
	}
	l, err := genome.NewLigand("test_ligand", typ, "the kitchen",
		[]string{"kitchen", "Maria"}, "neutral", anchor, depth)
	require.NoError(t, err)
	return l
}

func passingCandidate(t *testing.T) *ExpansionCandidate {
	t.Helper()
	return &ExpansionCandidate{
		Content:              "Maria lingered by the kitchen doorway.",
		TargetLigand:         testLigand(t, "decide", 2),
		ProposedDepth:        3,
		EmotionalTone:        "neutral",
		ObligationsAddressed: []string{"decide"},
	}
}

func TestValidate_Pass(t *testing.T) {
	chain := NewChain(nil)
	assert.Equal(t, Pass, chain.Validate(passingCandidate(t), testGenome(t)))
}

func TestValidate_EntityScope(t *testing.T) {
	chain := NewChain(nil)
	g := testGenome(t)

	// A character name absent from scope entities and not a generic
	// pronoun fails layer 1.
	c := passingCandidate(t)
	c.Content = "Bartholomew walked into the kitchen."
	assert.Equal(t, FailEntityScope, chain.Validate(c, g))

	// Generic pronouns and determiners never break scope.
	c = passingCandidate(t)
	c.Content = "She waited. Someone knocked. Nothing moved."
	assert.Equal(t, Pass, chain.Validate(c, g))

	// Scope comparison is case-insensitive.
	c = passingCandidate(t)
	c.Content = "Maria stared at the letter."
	assert.Equal(t, Pass, chain.Validate(c, g))
}

func TestValidate_FailClosedOrdering(t *testing.T) {
	chain := NewChain(nil)
	g := testGenome(t)

	// Violates entity scope (unknown name) AND proof anchor (no ligand,
	// no obligations). Layer 1 must short-circuit layer 2.
	c := &ExpansionCandidate{
		Content:       "Bartholomew entered.",
		TargetLigand:  nil,
		ProposedDepth: 1,
		EmotionalTone: "neutral",
	}
	assert.Equal(t, FailEntityScope, chain.Validate(c, g))
}

func TestValidate_ProofAnchor(t *testing.T) {
	chain := NewChain(nil)
	g := testGenome(t)

	// No target ligand at all.
	c := passingCandidate(t)
	c.TargetLigand = nil
	assert.Equal(t, FailProofAnchor, chain.Validate(c, g))

	// No obligations addressed and a non-obligation ligand.
	c = passingCandidate(t)
	c.TargetLigand = testLigand(t, "", 2)
	c.ObligationsAddressed = nil
	assert.Equal(t, FailProofAnchor, chain.Validate(c, g))

	// No obligations addressed but bound to an obligation ligand: passes.
	c = passingCandidate(t)
	c.ObligationsAddressed = nil
	assert.Equal(t, Pass, chain.Validate(c, g))

	// Claiming an obligation the genome does not contain fails.
	c = passingCandidate(t)
	c.ObligationsAddressed = []string{"conquer the world"}
	assert.Equal(t, FailProofAnchor, chain.Validate(c, g))
}

func TestValidate_EmotionalVector(t *testing.T) {
	tests := []struct {
		name     string
		required string
		tone     string
		want     Verdict
	}{
		{"exact match", "negative", "negative", Pass},
		{"neutral always allowed", "positive", "neutral", Pass},
		{"empty treated as neutral", "positive", "", Pass},
		{"complementary negative to neutral", "negative", "neutral", Pass},
		{"complementary neutral to positive", "neutral", "positive", Pass},
		{"complementary neutral to negative", "neutral", "negative", Pass},
		{"jump negative to positive", "negative", "positive", FailEmotionalVector},
		{"jump positive to negative", "positive", "negative", FailEmotionalVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(nil)
			g := testGenome(t)
			g.ToneVector = tt.required

			c := passingCandidate(t)
			c.EmotionalTone = tt.tone
			assert.Equal(t, tt.want, chain.Validate(c, g))
		})
	}
}

func TestValidate_SurfaceDepth(t *testing.T) {
	chain := NewChain(nil)
	g := testGenome(t)

	// Depth jump of more than 2 levels fails.
	c := passingCandidate(t)
	c.TargetLigand = testLigand(t, "decide", 1)
	c.ProposedDepth = 4
	assert.Equal(t, FailSurfaceDepth, chain.Validate(c, g))

	// Jump of exactly 2 is allowed.
	c.ProposedDepth = 3
	assert.Equal(t, Pass, chain.Validate(c, g))

	// The obscuring-metaphor patterns are gated by the relatedness
	// heuristic, which is a documented always-true stub, so metaphors
	// alone never reject.
	c = passingCandidate(t)
	c.Content = "She felt, metaphorically speaking, like a fish in a library."
	assert.Equal(t, Pass, chain.Validate(c, g))
}

func TestChainStats(t *testing.T) {
	chain := NewChain(nil)
	g := testGenome(t)

	chain.Validate(passingCandidate(t), g)

	c := passingCandidate(t)
	c.TargetLigand = nil
	chain.Validate(c, g)
	chain.Validate(c, g)

	stats := chain.Stats()
	assert.Equal(t, 1, stats[Pass])
	assert.Equal(t, 2, stats[FailProofAnchor])
}
