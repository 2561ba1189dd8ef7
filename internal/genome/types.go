// Package genome extracts the constraint set that governs recursive
// expansion of a narrative seed. A ConstraintGenome is built once per
// seed/beat pair and is read-only for the rest of a growth pass; the
// guard chain and orchestrator consume it but never mutate it.
package genome

import (
	"fmt"
	"time"
)

// LigandType classifies an anchor point eligible for elaboration.
type LigandType string

const (
	LigandCharacterAction       LigandType = "character_action"
	LigandEmotionalState        LigandType = "emotional_state"
	LigandSettingDetail         LigandType = "setting_detail"
	LigandConflictTension       LigandType = "conflict_tension"
	LigandDialogueSubtext       LigandType = "dialogue_subtext"
	LigandThemeResonance        LigandType = "theme_resonance"
	LigandObligationFulfillment LigandType = "obligation_fulfillment"
)

// Depth bounds for ligand elaboration levels. 1 is surface, 5 is deep.
const (
	MinDepth = 1
	MaxDepth = 5
)

// Ligand is an anchor point extracted from text that a future expansion
// may elaborate. Ligands are immutable after extraction and owned
// exclusively by their genome.
type Ligand struct {
	// ID uniquely identifies the ligand within its genome,
	// e.g. "emotional_state_1_0" or "obligation_2".
	ID string

	// Type is the ligand category.
	Type LigandType

	// Content is the literal text span the ligand was extracted from.
	Content string

	// ScopeConstraints lists the entities this ligand is confined to.
	// Always a subset of the owning genome's scope entities.
	ScopeConstraints []string

	// EmotionalVector is the tone an expansion of this ligand must align to.
	EmotionalVector string

	// ObligationAnchor names the obligation this ligand resolves, if any.
	ObligationAnchor string

	// DepthLevel is the elaboration level, MinDepth..MaxDepth.
	DepthLevel int
}

// NewLigand constructs a ligand and enforces its invariants. A violation
// here indicates a defect in the extractor, so it surfaces as a hard
// error rather than a degraded value.
func NewLigand(id string, typ LigandType, content string, scope []string, emotionalVector, obligationAnchor string, depth int) (*Ligand, error) {
	if content == "" {
		return nil, fmt.Errorf("ligand %s: content cannot be empty", id)
	}
	if depth < MinDepth || depth > MaxDepth {
		return nil, fmt.Errorf("ligand %s: depth level %d outside [%d,%d]", id, depth, MinDepth, MaxDepth)
	}

	return &Ligand{
		ID:               id,
		Type:             typ,
		Content:          content,
		ScopeConstraints: scope,
		EmotionalVector:  emotionalVector,
		ObligationAnchor: obligationAnchor,
		DepthLevel:       depth,
	}, nil
}

// ConstraintGenome is the complete constraint set parsed from one
// seed/beat pair.
type ConstraintGenome struct {
	SeedText      string
	BeatText      string
	Obligations   []string
	Characters    []string
	ToneVector    string
	ScopeEntities []string
	Ligands       []*Ligand
	ExtractedAt   time.Time
}

// LigandsByType returns all ligands of the given type, in extraction order.
func (g *ConstraintGenome) LigandsByType(typ LigandType) []*Ligand {
	var out []*Ligand
	for _, l := range g.Ligands {
		if l.Type == typ {
			out = append(out, l)
		}
	}
	return out
}

// ObligationLigands returns the ligands that can fulfill an obligation.
func (g *ConstraintGenome) ObligationLigands() []*Ligand {
	var out []*Ligand
	for _, l := range g.Ligands {
		if l.ObligationAnchor != "" {
			out = append(out, l)
		}
	}
	return out
}

// HasObligation reports whether the phrase is one of the genome's obligations.
func (g *ConstraintGenome) HasObligation(phrase string) bool {
	for _, o := range g.Obligations {
		if o == phrase {
			return true
		}
	}
	return false
}
