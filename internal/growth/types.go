package growth

import (
	"context"
	"time"

	"dreamgate/internal/budget"
	"dreamgate/internal/genome"
	"dreamgate/internal/guard"
)

// Phase is the current stage of a growth pass.
type Phase string

const (
	PhaseSeeding     Phase = "seeding"
	PhaseElaboration Phase = "elaboration"
	PhaseIntegration Phase = "integration"
	PhaseSaturation  Phase = "saturation"
	PhaseTermination Phase = "termination"
)

// SubsystemName is how this engine identifies itself to an external arbiter.
const SubsystemName = "growth_pass"

// CandidateSource proposes expansion candidates for a genome. This is the
// seam where the actual text generator plugs in. Implementations should
// honor ctx; an error return is treated as zero candidates for the
// iteration, not a fatal failure.
type CandidateSource interface {
	Propose(ctx context.Context, g *genome.ConstraintGenome, history []string) ([]*guard.ExpansionCandidate, error)
}

// Arbiter lets a higher-level multi-subsystem controller impose a global
// saturation ceiling across several independent engines. The orchestrator
// functions identically with a nil arbiter (always-true / no-op).
type Arbiter interface {
	// CanIterate is queried before each iteration.
	CanIterate(subsystem string) bool

	// ResetSubsystemOnInsight is notified after a high-quality accepted
	// batch.
	ResetSubsystemOnInsight(subsystem string)
}

// Config tunes a growth pass. Zero values fall back to defaults that match
// the reference constants.
type Config struct {
	// Ceilings overrides per-category gate budgets.
	Ceilings map[budget.Category]int

	// InsightThreshold is the average batch quality above which an
	// insight reset is performed. Default 0.7.
	InsightThreshold float64

	// StagnationLimit terminates the pass after this many consecutive
	// iterations without an insight. Default 5.
	StagnationLimit int

	// QualityFloor terminates the pass when the rolling average of the
	// last QualityWindow scores drops below it. Default 0.3.
	QualityFloor float64

	// QualityWindow is the number of recent scores the floor check
	// averages over. Default 5.
	QualityWindow int

	// TrendWindow bounds the retained quality trend. Default 10.
	TrendWindow int

	// InsightTimeout terminates the pass when no insight reset has
	// happened for this long. Default 10 minutes.
	InsightTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.InsightThreshold == 0 {
		c.InsightThreshold = 0.7
	}
	if c.StagnationLimit == 0 {
		c.StagnationLimit = 5
	}
	if c.QualityFloor == 0 {
		c.QualityFloor = 0.3
	}
	if c.QualityWindow == 0 {
		c.QualityWindow = 5
	}
	if c.TrendWindow == 0 {
		c.TrendWindow = 10
	}
	if c.InsightTimeout == 0 {
		c.InsightTimeout = 10 * time.Minute
	}
	return c
}

// GateStats is a per-gate snapshot taken when a pass finishes.
type GateStats struct {
	Remaining       int
	Ceiling         int
	SaturationLevel float64
	Iterations      int
	TimeSinceReset  time.Duration
}

// Statistics summarizes a completed growth pass.
type Statistics struct {
	TotalIterations      int
	SuccessfulExpansions int
	FailedIterations     int
	InsightsGenerated    int
	BudgetResets         int
	SaturationEvents     int
	AverageQuality       float64
	GrowthVelocity       float64
	BudgetUtilization    float64
	GateStats            map[budget.Category]GateStats
}

// PassResult is what a caller receives from Run, even when the pass
// terminates early. An empty expansion list is a legitimate outcome
// meaning no qualifying expansion could be produced.
type PassResult struct {
	// Expansions are the accepted expansion texts, in acceptance order.
	Expansions []string

	// FinalPhase is the phase the pass ended in.
	FinalPhase Phase

	// Stats describes the pass.
	Stats Statistics
}
