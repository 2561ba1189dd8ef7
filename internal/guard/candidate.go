package guard

import (
	"time"

	"dreamgate/internal/genome"
)

// ExpansionCandidate is a proposed piece of expansion text plus the
// metadata the guard chain needs to judge it. Candidates are produced by a
// candidate source, consumed by one validation cycle, and never persisted.
type ExpansionCandidate struct {
	// Content is the proposed expansion text.
	Content string

	// TargetLigand is the anchor point this candidate elaborates.
	TargetLigand *genome.Ligand

	// ProposedDepth is the elaboration level the candidate claims.
	ProposedDepth int

	// EmotionalTone is the tone the candidate carries. Empty is treated
	// as neutral.
	EmotionalTone string

	// EntitiesIntroduced lists entities the generator says it added.
	EntitiesIntroduced []string

	// ObligationsAddressed lists genome obligations the candidate claims
	// to resolve.
	ObligationsAddressed []string

	// GeneratedAt records when the candidate was produced.
	GeneratedAt time.Time
}
