package growth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dreamgate/internal/budget"
	"dreamgate/internal/genome"
	"dreamgate/internal/guard"
	"dreamgate/internal/pathogen"
)

// gatePriorities maps each phase to the categories it prefers to spend,
// in order. Phases absent here fall back to the largest remaining budget.
var gatePriorities = map[Phase][]budget.Category{
	PhaseSeeding:     {budget.SurfaceExpansion, budget.ObligationResolution},
	PhaseElaboration: {budget.DeepAnalysis, budget.CharacterDevelopment},
	PhaseIntegration: {budget.ThematicExploration, budget.CharacterDevelopment},
	PhaseSaturation:  {budget.ObligationResolution},
}

// characterMarkers and thematicMarkers are the substrings the specialty
// filters look for. Matching is plain substring containment over the
// lowercased candidate, so short markers also hit inside larger words.
var (
	characterMarkers = []string{"he", "she", "they", "character", "person"}
	thematicMarkers  = []string{"meaning", "significance", "represents", "symbolizes"}
)

// OrchestratorConfig holds the dependencies for an Orchestrator.
type OrchestratorConfig struct {
	// Chain validates candidates (required).
	Chain *guard.Chain

	// Scanner detects drift pathogens in surviving candidates (required).
	Scanner *pathogen.Scanner

	// Arbiter is an optional external saturation controller.
	Arbiter Arbiter

	// Logger for pass progress. Optional.
	Logger *zap.Logger

	// Growth tunes loop behavior. Zero values use defaults.
	Growth Config
}

// Orchestrator runs growth passes. It is stateless between passes; all
// per-pass state (gates, trend, history) is created inside Run, so one
// orchestrator may serve sequential passes or be shared across sessions
// that call Run concurrently.
type Orchestrator struct {
	chain   *guard.Chain
	scanner *pathogen.Scanner
	arbiter Arbiter
	logger  *zap.Logger
	config  Config
}

// NewOrchestrator creates an orchestrator from the config.
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("guard chain is required")
	}
	if cfg.Scanner == nil {
		return nil, fmt.Errorf("pathogen scanner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		chain:   cfg.Chain,
		scanner: cfg.Scanner,
		arbiter: cfg.Arbiter,
		logger:  logger,
		config:  cfg.Growth.withDefaults(),
	}, nil
}

// passState is the mutable state of one growth pass.
type passState struct {
	phase       Phase
	iterations  int
	successful  int
	failed      int
	insights    int
	resets      int
	saturations int
	stagnation  int
	trend       []float64
	history     []string
	expansions  []string
	lastInsight time.Time
}

// Run executes a growth pass against the genome, up to maxIterations.
// The returned result is always populated, including when the pass
// terminates early on stagnation, saturation, arbiter veto, or context
// cancellation; the only errors are invalid arguments.
func (o *Orchestrator) Run(ctx context.Context, g *genome.ConstraintGenome, source CandidateSource, maxIterations int) (*PassResult, error) {
	if g == nil {
		return nil, fmt.Errorf("genome is required")
	}
	if source == nil {
		return nil, fmt.Errorf("candidate source is required")
	}
	if maxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", maxIterations)
	}

	gates, err := budget.NewGateSet(o.config.Ceilings)
	if err != nil {
		return nil, err
	}

	state := &passState{
		phase:       PhaseSeeding,
		lastInsight: time.Now(),
	}

	o.logger.Info("growth pass starting",
		zap.Int("max_iterations", maxIterations),
		zap.Int("total_budget", gates.TotalCeiling()),
		zap.Int("ligands", len(g.Ligands)))

	for state.iterations < maxIterations {
		if ctx.Err() != nil {
			o.logger.Info("growth pass cancelled", zap.Int("iterations", state.iterations))
			break
		}

		state.phase = o.currentPhase(state)

		if o.arbiter != nil && !o.arbiter.CanIterate(SubsystemName) {
			o.logger.Info("arbiter vetoed iteration", zap.Int("iterations", state.iterations))
			break
		}

		active := gates.Active()
		if len(active) == 0 {
			state.saturations++
			o.logger.Info("all gates exhausted", zap.Int("iterations", state.iterations))
			break
		}

		gate := selectGate(active, state.phase)
		o.iterate(ctx, g, source, gate, state)

		if reason := o.stagnationReason(state); reason != "" {
			o.logger.Info("growth pass stagnated",
				zap.String("reason", reason),
				zap.Int("iterations", state.iterations))
			break
		}
	}

	return o.finalize(state, gates), nil
}

// iterate performs one loop step: propose, filter, validate, scan, score.
// Exactly one budget unit is consumed whether or not anything is accepted.
func (o *Orchestrator) iterate(ctx context.Context, g *genome.ConstraintGenome, source CandidateSource, gate *budget.Gate, state *passState) {
	candidates, err := source.Propose(ctx, g, state.history)

	state.iterations++
	gate.Consume(1)

	if err != nil {
		o.logger.Warn("candidate source failed",
			zap.Error(err),
			zap.String("gate", string(gate.Category())))
		candidates = nil
	}

	var batch []string
	var scores []float64
	for _, c := range filterForGate(candidates, gate.Category()) {
		if o.chain.Validate(c, g) != guard.Pass {
			continue
		}
		scan := o.scanner.Scan(c.Content)
		if scan.Recommendation == pathogen.RecommendBlock {
			continue
		}
		batch = append(batch, c.Content)
		scores = append(scores, quality(c, scan.HealthScore))
	}

	if len(batch) == 0 {
		state.failed++
		state.stagnation++
		return
	}

	state.successful += len(batch)
	state.expansions = append(state.expansions, batch...)
	state.history = append(state.history, batch...)

	avg := mean(scores)
	state.trend = append(state.trend, avg)
	if len(state.trend) > o.config.TrendWindow {
		state.trend = state.trend[len(state.trend)-o.config.TrendWindow:]
	}

	if avg > o.config.InsightThreshold {
		gate.ResetOnInsight(avg)
		state.insights++
		state.resets++
		state.stagnation = 0
		state.lastInsight = time.Now()
		if o.arbiter != nil {
			o.arbiter.ResetSubsystemOnInsight(SubsystemName)
		}
		o.logger.Info("insight reset",
			zap.String("gate", string(gate.Category())),
			zap.Float64("quality", avg),
			zap.Int("remaining", gate.Remaining()))
	} else {
		state.stagnation++
	}
}

// currentPhase derives the phase from pass state. The ordering matters:
// a long run with no insights counts as saturation even when the trend
// looks healthy.
func (o *Orchestrator) currentPhase(state *passState) Phase {
	switch {
	case state.iterations == 0:
		return PhaseSeeding
	case state.insights == 0 && state.iterations > 5:
		return PhaseSaturation
	case trendIntegrating(state.trend, o.config.InsightThreshold):
		return PhaseIntegration
	case state.successful > 0:
		return PhaseElaboration
	default:
		return PhaseSeeding
	}
}

// trendIntegrating reports whether the last three batches all scored
// above the insight threshold.
func trendIntegrating(trend []float64, threshold float64) bool {
	if len(trend) < 3 {
		return false
	}
	for _, q := range trend[len(trend)-3:] {
		if q <= threshold {
			return false
		}
	}
	return true
}

// stagnationReason reports why the pass should stop, or "" to continue.
func (o *Orchestrator) stagnationReason(state *passState) string {
	if state.stagnation >= o.config.StagnationLimit {
		return "consecutive iterations without insight"
	}
	if len(state.trend) >= o.config.QualityWindow {
		recent := state.trend[len(state.trend)-o.config.QualityWindow:]
		if mean(recent) < o.config.QualityFloor {
			return "quality trend below floor"
		}
	}
	if time.Since(state.lastInsight) > o.config.InsightTimeout {
		return "insight timeout"
	}
	return ""
}

// selectGate picks the gate for this iteration: the phase's preferred
// category if one is still active, otherwise the most budget left (ties
// resolve in fixed category order).
func selectGate(active []*budget.Gate, phase Phase) *budget.Gate {
	for _, cat := range gatePriorities[phase] {
		for _, gate := range active {
			if gate.Category() == cat {
				return gate
			}
		}
	}
	best := active[0]
	for _, gate := range active[1:] {
		if gate.Remaining() > best.Remaining() {
			best = gate
		}
	}
	return best
}

// filterForGate keeps only the candidates matching the gate's specialty.
func filterForGate(candidates []*guard.ExpansionCandidate, cat budget.Category) []*guard.ExpansionCandidate {
	var kept []*guard.ExpansionCandidate
	for _, c := range candidates {
		if matchesCategory(c, cat) {
			kept = append(kept, c)
		}
	}
	return kept
}

func matchesCategory(c *guard.ExpansionCandidate, cat budget.Category) bool {
	switch cat {
	case budget.SurfaceExpansion:
		return len(c.Content) < 200
	case budget.DeepAnalysis:
		return len(c.Content) >= 100
	case budget.CharacterDevelopment:
		return containsAny(c.Content, characterMarkers)
	case budget.ThematicExploration:
		return containsAny(c.Content, thematicMarkers)
	case budget.ObligationResolution:
		return len(c.ObligationsAddressed) > 0
	default:
		return false
	}
}

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// quality scores an accepted candidate in [0,1]: a 0.5 base, a length
// factor that peaks near 120 characters and decays for longer text, an
// obligation bonus, the scan health, and a small depth bonus.
func quality(c *guard.ExpansionCandidate, health float64) float64 {
	length := float64(len(c.Content)) / 150
	if length > 1 {
		length = 1
	}
	if length > 0.8 {
		length = 1.0 - (length-0.8)*2
	}

	q := 0.5 + length*0.3

	if len(c.ObligationsAddressed) > 0 {
		q += 0.3
	}

	q += health * 0.3

	depthBonus := float64(c.ProposedDepth) * 0.05
	if depthBonus > 0.2 {
		depthBonus = 0.2
	}
	q += depthBonus

	if q > 1.0 {
		q = 1.0
	}
	return q
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

// finalize assembles the result and closing statistics.
func (o *Orchestrator) finalize(state *passState, gates *budget.GateSet) *PassResult {
	stats := Statistics{
		TotalIterations:      state.iterations,
		SuccessfulExpansions: state.successful,
		FailedIterations:     state.failed,
		InsightsGenerated:    state.insights,
		BudgetResets:         state.resets,
		SaturationEvents:     state.saturations,
		AverageQuality:       mean(state.trend),
		GateStats:            make(map[budget.Category]GateStats, len(budget.Categories)),
	}
	if state.iterations > 0 {
		stats.GrowthVelocity = float64(state.successful) / float64(state.iterations)
	}
	if total := gates.TotalCeiling(); total > 0 {
		stats.BudgetUtilization = float64(total-gates.TotalRemaining()) / float64(total)
	}
	for _, cat := range budget.Categories {
		gate := gates.Gate(cat)
		stats.GateStats[cat] = GateStats{
			Remaining:       gate.Remaining(),
			Ceiling:         gate.Ceiling(),
			SaturationLevel: gate.SaturationLevel(),
			Iterations:      gate.Iterations(),
			TimeSinceReset:  gate.TimeSinceReset(),
		}
	}

	finalPhase := PhaseSaturation
	if state.successful > 0 {
		finalPhase = PhaseTermination
	}

	o.logger.Info("growth pass complete",
		zap.String("final_phase", string(finalPhase)),
		zap.Int("iterations", stats.TotalIterations),
		zap.Int("expansions", stats.SuccessfulExpansions),
		zap.Int("insights", stats.InsightsGenerated),
		zap.Float64("avg_quality", stats.AverageQuality),
		zap.Float64("budget_utilization", stats.BudgetUtilization))

	return &PassResult{
		Expansions: state.expansions,
		FinalPhase: finalPhase,
		Stats:      stats,
	}
}
