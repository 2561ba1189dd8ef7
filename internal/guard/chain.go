// Package guard implements the four-layer fail-closed validator that every
// expansion candidate must pass before acceptance. Layers run in a strict
// order and the first failing layer decides the verdict; rejection is an
// expected, frequent outcome and is returned as a value, never an error.
package guard

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dreamgate/internal/genome"
)

// Verdict is the closed outcome set of a guard chain validation.
type Verdict string

const (
	Pass                Verdict = "pass"
	FailEntityScope     Verdict = "fail_entity_scope"
	FailProofAnchor     Verdict = "fail_proof_anchor"
	FailEmotionalVector Verdict = "fail_emotional_vector"
	FailSurfaceDepth    Verdict = "fail_surface_depth"
)

// maxDepthJump is the largest allowed gap between a candidate's proposed
// depth and its target ligand's depth.
const maxDepthJump = 2

var candidateEntity = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// genericEntities are common capitalized words that never break entity
// scope: pronouns, determiners, and indefinite references.
var genericEntities = map[string]struct{}{
	"He": {}, "She": {}, "They": {}, "It": {}, "This": {}, "That": {},
	"The": {}, "A": {}, "An": {},
	"Someone": {}, "Something": {}, "Everyone": {}, "Everything": {},
	"Nobody": {}, "Nothing": {},
}

// complementaryTones are the allowed emotional progressions beyond exact
// alignment, keyed as (required tone, candidate tone).
var complementaryTones = map[[2]string]struct{}{
	{"negative", "neutral"}: {},
	{"neutral", "positive"}: {},
	{"positive", "neutral"}: {},
	{"neutral", "negative"}: {},
}

// obscuringMetaphors flag constructions that tend to obscure rather than
// clarify ("like a fish in a library", "as if emotions were mathematics").
var obscuringMetaphors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)like\s+a\s+(\w+)\s+in\s+a\s+(\w+)`),
	regexp.MustCompile(`(?i)as\s+if\s+(\w+)\s+were\s+(\w+)`),
	regexp.MustCompile(`(?i)metaphorically\s+speaking`),
	regexp.MustCompile(`(?i)in\s+a\s+sense`),
	regexp.MustCompile(`(?i)so\s+to\s+speak`),
}

// Chain validates expansion candidates against a constraint genome. The
// validation itself is pure; the chain additionally keeps per-verdict
// counters and writes one audit log entry per call.
type Chain struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[Verdict]int
}

// NewChain creates a guard chain. A nil logger disables audit logging.
func NewChain(logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		logger: logger,
		counts: make(map[Verdict]int),
	}
}

// Validate runs the candidate through the four guard layers in order,
// stopping at the first failure.
func (c *Chain) Validate(candidate *ExpansionCandidate, g *genome.ConstraintGenome) Verdict {
	verdict := c.validate(candidate, g)

	c.mu.Lock()
	c.counts[verdict]++
	c.mu.Unlock()

	entry := c.logger.Debug
	if verdict != Pass {
		entry = c.logger.Info
	}
	entry("guard chain verdict",
		zap.String("verdict", string(verdict)),
		zap.String("candidate", snippet(candidate.Content)))

	return verdict
}

func (c *Chain) validate(candidate *ExpansionCandidate, g *genome.ConstraintGenome) Verdict {
	if v := checkEntityScope(candidate, g); v != Pass {
		return v
	}
	if v := checkProofAnchor(candidate, g); v != Pass {
		return v
	}
	if v := checkEmotionalVector(candidate, g); v != Pass {
		return v
	}
	return checkSurfaceDepth(candidate)
}

// Stats returns a copy of the per-verdict counters accumulated by this chain.
func (c *Chain) Stats() map[Verdict]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Verdict]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Layer 1: no unauthorized people or places.
func checkEntityScope(candidate *ExpansionCandidate, g *genome.ConstraintGenome) Verdict {
	authorized := make(map[string]struct{}, len(g.ScopeEntities))
	for _, e := range g.ScopeEntities {
		authorized[strings.ToLower(e)] = struct{}{}
	}

	for _, entity := range candidateEntity.FindAllString(candidate.Content, -1) {
		if _, generic := genericEntities[entity]; generic {
			continue
		}
		if _, ok := authorized[strings.ToLower(entity)]; !ok {
			return FailEntityScope
		}
	}
	return Pass
}

// Layer 2: the candidate must anchor to a ligand and advance a real
// obligation.
func checkProofAnchor(candidate *ExpansionCandidate, g *genome.ConstraintGenome) Verdict {
	if candidate.TargetLigand == nil {
		return FailProofAnchor
	}
	if len(candidate.ObligationsAddressed) == 0 && candidate.TargetLigand.ObligationAnchor == "" {
		return FailProofAnchor
	}
	for _, obligation := range candidate.ObligationsAddressed {
		if !g.HasObligation(obligation) {
			return FailProofAnchor
		}
	}
	return Pass
}

// Layer 3: tone must align with the genome, directly or through a
// complementary progression. Neutral is always allowed.
func checkEmotionalVector(candidate *ExpansionCandidate, g *genome.ConstraintGenome) Verdict {
	tone := candidate.EmotionalTone
	if tone == "" || tone == "neutral" {
		return Pass
	}
	if tone == g.ToneVector {
		return Pass
	}
	if _, ok := complementaryTones[[2]string{g.ToneVector, tone}]; ok {
		return Pass
	}
	return FailEmotionalVector
}

// Layer 4: depth jumps are bounded and metaphors must clarify, not obscure.
func checkSurfaceDepth(candidate *ExpansionCandidate) Verdict {
	gap := candidate.ProposedDepth - candidate.TargetLigand.DepthLevel
	if gap < 0 {
		gap = -gap
	}
	if gap > maxDepthJump {
		return FailSurfaceDepth
	}
	if containsObscuringMetaphor(candidate.Content) {
		return FailSurfaceDepth
	}
	return Pass
}

func containsObscuringMetaphor(text string) bool {
	for _, pat := range obscuringMetaphors {
		if pat.MatchString(text) && !metaphorComponentsRelated(text) {
			return true
		}
	}
	return false
}

// metaphorComponentsRelated judges whether a metaphor's components fit the
// surrounding context. This is a named heuristic with no semantic grounding:
// it always answers true, so metaphor detection never rejects on its own.
// Kept as-is deliberately; replacing it with real semantic analysis would
// silently change accept/reject behavior.
func metaphorComponentsRelated(string) bool {
	return true
}

func snippet(s string) string {
	const n = 50
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
