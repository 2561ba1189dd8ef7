// Package pathogen detects narrative drift in expansion text. It runs
// independently of the guard chain as a second opinion: each scan reports
// per-pathogen detections, an overall health score in [0,1], and a vote on
// whether expansion should continue.
package pathogen

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// historyLimit bounds the rolling scan history kept for session statistics.
const historyLimit = 256

// severityPenalty is the fixed health reduction per detection.
var severityPenalty = map[Severity]float64{
	SeverityLow:      0.1,
	SeverityMedium:   0.25,
	SeverityHigh:     0.4,
	SeverityCritical: 0.7,
}

// Scanner matches text against a fingerprint library. Each scan is
// stateless; the scanner only accumulates a bounded history for aggregate
// statistics. Safe for concurrent use.
type Scanner struct {
	library *Library
	logger  *zap.Logger

	mu      sync.Mutex
	history []*ScanResult
}

// NewScanner creates a scanner over the given library. A nil library gets
// the defaults; a nil logger disables logging.
func NewScanner(library *Library, logger *zap.Logger) *Scanner {
	if library == nil {
		library = NewLibrary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{library: library, logger: logger}
}

// Scan matches the text against every fingerprint and computes the overall
// health score and recommendation. Detections that stay at low severity are
// suppressed.
func (s *Scanner) Scan(text string) *ScanResult {
	var detections []Detection
	health := 1.0

	for _, typ := range s.library.Types() {
		f, _ := s.library.Fingerprint(typ)
		if d, ok := scanFingerprint(text, f); ok {
			detections = append(detections, d)
			health -= severityPenalty[d.Severity]
		}
	}
	if health < 0 {
		health = 0
	}

	result := &ScanResult{
		TextScanned:    text,
		ScannedAt:      time.Now(),
		Detections:     detections,
		HealthScore:    health,
		Recommendation: recommend(detections, health),
	}

	s.mu.Lock()
	s.history = append(s.history, result)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.mu.Unlock()

	s.logger.Debug("pathogen scan complete",
		zap.Int("detections", len(detections)),
		zap.Float64("health", health),
		zap.String("recommendation", string(result.Recommendation)))

	return result
}

func scanFingerprint(text string, f *Fingerprint) (Detection, bool) {
	matches := make(map[string]int)
	var regions []Region

	for i, re := range f.compiled {
		locs := re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		matches[f.Patterns[i]] = len(locs)
		for _, loc := range locs {
			regions = append(regions, Region{Start: loc[0], End: loc[1]})
		}
	}

	markerHits := 0
	for _, re := range f.markers {
		locs := re.FindAllStringIndex(text, -1)
		markerHits += len(locs)
		for _, loc := range locs {
			regions = append(regions, Region{Start: loc[0], End: loc[1]})
		}
	}
	if markerHits > 0 {
		matches["semantic_markers_"+string(f.Type)] = markerHits
	}

	severity := f.severityFor(matches)
	if len(matches) == 0 || severity == SeverityLow {
		return Detection{}, false
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Start != regions[j].Start {
			return regions[i].Start < regions[j].Start
		}
		return regions[i].End < regions[j].End
	})

	patterns := make([]string, 0, len(matches))
	for p := range matches {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	return Detection{
		Type:            f.Type,
		Severity:        severity,
		Confidence:      confidence(text, matches),
		MatchedPatterns: patterns,
		InfectedRegions: regions,
		Description:     f.Name + ": " + f.Description,
		Remediation:     remediationFor(f.Type),
		DetectedAt:      time.Now(),
	}, true
}

// confidence grows with pattern density (hits per 100 characters), capped
// at 0.95.
func confidence(text string, matches map[string]int) float64 {
	total := 0
	for _, n := range matches {
		total += n
	}
	denom := float64(len(text)) / 100
	if denom < 1 {
		denom = 1
	}
	c := (float64(total)/denom)*0.3 + 0.1
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// recommend implements the voting policy over detections and health.
func recommend(detections []Detection, health float64) Recommendation {
	critical, high := 0, 0
	for _, d := range detections {
		switch d.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		}
	}

	switch {
	case critical >= 2 || health < 0.3:
		return RecommendBlock
	case critical >= 1 || high >= 2 || health < 0.5:
		return RecommendSuggest
	case len(detections) == 0 && health > 0.9:
		return RecommendContinue
	case health < 0.7:
		return RecommendSuggest
	default:
		return RecommendContinue
	}
}

// Stats summarizes the scanner's rolling history.
func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Frequency:         make(map[Type]int),
		SeverityBreakdown: make(map[Severity]int),
	}
	if len(s.history) == 0 {
		return stats
	}

	totalHealth := 0.0
	for _, scan := range s.history {
		stats.TotalScans++
		totalHealth += scan.HealthScore
		for _, d := range scan.Detections {
			stats.TotalDetections++
			stats.Frequency[d.Type]++
			stats.SeverityBreakdown[d.Severity]++
		}
	}
	stats.AverageHealth = totalHealth / float64(stats.TotalScans)

	// Ties resolve in library registration order for determinism.
	best := -1
	for _, typ := range s.library.Types() {
		if n := stats.Frequency[typ]; n > best {
			best = n
			stats.MostCommonPathogen = typ
		}
	}
	if best == 0 {
		stats.MostCommonPathogen = ""
	}
	return stats
}

var remediationTable = map[Type][]string{
	AncestralDrift: {
		"Focus on present moment actions rather than backstory",
		"Ground character motivations in current scene context",
		"Remove unnecessary historical references",
		"Keep family/past references minimal and relevant",
	},
	SentimentalityBloom: {
		"Reduce emotional intensity descriptors",
		"Show emotion through action rather than description",
		"Avoid superlative emotional language",
		"Ground feelings in specific, concrete details",
	},
	HallucinatedPrecision: {
		"Remove specific measurements not established in source",
		"Replace exact figures with approximate descriptions",
		"Eliminate fabricated identification numbers or codes",
		"Focus on relative rather than absolute descriptions",
	},
	ThematicMutation: {
		"Ensure all content relates to established themes",
		"Remove tangential or unrelated story elements",
		"Maintain focus on current narrative thread",
		"Connect new elements to existing thematic framework",
	},
	TimeJumpParasite: {
		"Maintain consistent temporal perspective",
		"Remove unexpected time shifts",
		"Clarify chronological relationships",
		"Stay within established timeline",
	},
	ScopeCreep: {
		"Limit scope to immediate narrative context",
		"Remove global or universal implications",
		"Focus on character-level rather than world-level impacts",
		"Keep consequences proportional to story scale",
	},
	CharacterContamination: {
		"Restrict the cast to characters established by the seed",
		"Remove unnamed or mysterious arrivals",
		"Keep behavior consistent with established characterization",
	},
	TonalInfection: {
		"Match the emotional register of the surrounding text",
		"Remove abrupt mood reversals",
		"Let tone shift gradually through action, not announcement",
	},
}

func remediationFor(t Type) []string {
	return remediationTable[t]
}
