// Package generator provides candidate sources for the growth loop: a
// deterministic template source for offline runs and tests, and a
// Claude-backed source for real elaboration. Both satisfy
// growth.CandidateSource.
package generator

import (
	"context"
	"regexp"
	"time"

	"dreamgate/internal/genome"
	"dreamgate/internal/guard"
)

var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// TemplateSource derives one candidate per ligand from fixed sentence
// templates. No external calls, fully deterministic; the zero value is
// ready to use.
type TemplateSource struct{}

// Propose generates a candidate for every ligand in the genome.
func (TemplateSource) Propose(_ context.Context, g *genome.ConstraintGenome, _ []string) ([]*guard.ExpansionCandidate, error) {
	var candidates []*guard.ExpansionCandidate
	for _, ligand := range g.Ligands {
		content := renderTemplate(ligand)

		var obligations []string
		if ligand.ObligationAnchor != "" {
			obligations = []string{ligand.ObligationAnchor}
		}

		candidates = append(candidates, &guard.ExpansionCandidate{
			Content:              content,
			TargetLigand:         ligand,
			ProposedDepth:        ligand.DepthLevel + 1,
			EmotionalTone:        g.ToneVector,
			EntitiesIntroduced:   entityPattern.FindAllString(content, -1),
			ObligationsAddressed: obligations,
			GeneratedAt:          time.Now(),
		})
	}
	return candidates, nil
}

func renderTemplate(l *genome.Ligand) string {
	switch l.Type {
	case genome.LigandCharacterAction:
		return "The action of " + l.Content + " revealed deeper motivations."
	case genome.LigandEmotionalState:
		return "This " + l.Content + " resonated through the scene, affecting everyone present."
	case genome.LigandSettingDetail:
		return "The " + l.Content + " held significance beyond its immediate appearance."
	case genome.LigandObligationFulfillment:
		return "To " + l.ObligationAnchor + ", the character took deliberate action."
	default:
		return "The element " + l.Content + " demanded further exploration."
	}
}
