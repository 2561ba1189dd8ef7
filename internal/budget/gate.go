// Package budget implements ZC gates: depletable, insight-resettable
// recursion budgets that bound how long a growth pass may keep expanding.
// A gate set belongs to exactly one orchestrator and is never shared.
package budget

import (
	"fmt"
	"math"
	"time"
)

// Category names an expansion specialty with its own budget.
type Category string

const (
	SurfaceExpansion     Category = "surface_expansion"
	DeepAnalysis         Category = "deep_analysis"
	CharacterDevelopment Category = "character_development"
	ThematicExploration  Category = "thematic_exploration"
	ObligationResolution Category = "obligation_resolution"
)

// Categories lists every category in a fixed order, used wherever
// deterministic iteration matters.
var Categories = []Category{
	SurfaceExpansion,
	DeepAnalysis,
	CharacterDevelopment,
	ThematicExploration,
	ObligationResolution,
}

// DefaultCeilings are the initial budgets per category.
var DefaultCeilings = map[Category]int{
	SurfaceExpansion:     5,
	DeepAnalysis:         10,
	CharacterDevelopment: 8,
	ThematicExploration:  12,
	ObligationResolution: 15,
}

// Gate is one depletable recursion budget. Not safe for concurrent use;
// the owning orchestrator mutates it from a single goroutine.
type Gate struct {
	category   Category
	remaining  int
	ceiling    int
	iterations int
	lastReset  time.Time
}

// NewGate creates a gate with the given ceiling.
func NewGate(category Category, ceiling int) (*Gate, error) {
	if ceiling <= 0 {
		return nil, fmt.Errorf("gate %s: ceiling must be positive, got %d", category, ceiling)
	}
	return &Gate{
		category:  category,
		remaining: ceiling,
		ceiling:   ceiling,
		lastReset: time.Now(),
	}, nil
}

// Category returns the gate's specialty.
func (g *Gate) Category() Category { return g.category }

// Remaining returns the unconsumed budget.
func (g *Gate) Remaining() int { return g.remaining }

// Ceiling returns the gate's original budget.
func (g *Gate) Ceiling() int { return g.ceiling }

// Iterations returns how many times this gate has been consumed.
func (g *Gate) Iterations() int { return g.iterations }

// CanContinue reports whether the gate has budget left.
func (g *Gate) CanContinue() bool { return g.remaining > 0 }

// Consume spends budget for one iteration. Returns false, without
// consuming, if the remaining budget is insufficient.
func (g *Gate) Consume(amount int) bool {
	if g.remaining < amount {
		return false
	}
	g.remaining -= amount
	g.iterations++
	return true
}

// ResetOnInsight refunds budget after a high-quality accepted expansion.
// The refund is ceiling x quality, rounded, and the result never exceeds
// the original ceiling.
func (g *Gate) ResetOnInsight(quality float64) {
	refund := int(math.Round(float64(g.ceiling) * quality))
	g.remaining += refund
	if g.remaining > g.ceiling {
		g.remaining = g.ceiling
	}
	g.lastReset = time.Now()
}

// SaturationLevel reports how depleted the gate is: 0.0 fresh, 1.0 spent.
func (g *Gate) SaturationLevel() float64 {
	return 1.0 - float64(g.remaining)/float64(g.ceiling)
}

// TimeSinceReset returns the time since the last insight reset (or
// construction).
func (g *Gate) TimeSinceReset() time.Duration {
	return time.Since(g.lastReset)
}

// GateSet holds the five gates for one growth-pass session.
type GateSet struct {
	gates map[Category]*Gate
}

// NewGateSet builds a gate per category. Ceilings override the defaults
// where present; zero or missing entries fall back to DefaultCeilings.
func NewGateSet(ceilings map[Category]int) (*GateSet, error) {
	gates := make(map[Category]*Gate, len(Categories))
	for _, cat := range Categories {
		ceiling := ceilings[cat]
		if ceiling == 0 {
			ceiling = DefaultCeilings[cat]
		}
		gate, err := NewGate(cat, ceiling)
		if err != nil {
			return nil, err
		}
		gates[cat] = gate
	}
	return &GateSet{gates: gates}, nil
}

// Gate returns the gate for a category.
func (s *GateSet) Gate(cat Category) *Gate {
	return s.gates[cat]
}

// Active returns the gates that still have budget, in fixed category order.
func (s *GateSet) Active() []*Gate {
	var active []*Gate
	for _, cat := range Categories {
		if g := s.gates[cat]; g.CanContinue() {
			active = append(active, g)
		}
	}
	return active
}

// TotalRemaining sums the remaining budget across all gates.
func (s *GateSet) TotalRemaining() int {
	total := 0
	for _, g := range s.gates {
		total += g.remaining
	}
	return total
}

// TotalCeiling sums the ceilings across all gates.
func (s *GateSet) TotalCeiling() int {
	total := 0
	for _, g := range s.gates {
		total += g.ceiling
	}
	return total
}
