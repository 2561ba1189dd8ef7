package pathogen

import (
	"fmt"
	"regexp"
	"time"
)

// Type names a pattern of undesired narrative drift.
type Type string

const (
	AncestralDrift         Type = "ancestral_drift"
	SentimentalityBloom    Type = "sentimentality_bloom"
	HallucinatedPrecision  Type = "hallucinated_precision"
	ThematicMutation       Type = "thematic_mutation"
	TimeJumpParasite       Type = "time_jump_parasite"
	ScopeCreep             Type = "scope_creep"
	CharacterContamination Type = "character_contamination"
	TonalInfection         Type = "tonal_infection"
)

// Severity grades a detection.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recommendation is the scanner's vote on whether expansion should proceed.
type Recommendation string

const (
	RecommendContinue Recommendation = "continue"
	RecommendSuggest  Recommendation = "suggest"
	RecommendBlock    Recommendation = "block"
)

// Fingerprint defines how one pathogen is detected: literal regex patterns,
// keyword indicators, per-pattern severity weights, and the threshold the
// weighted score is compared against.
type Fingerprint struct {
	Type            Type
	Name            string
	Description     string
	Patterns        []string
	SemanticMarkers []string

	// SeverityWeights maps a pattern (by its source string) to its weight.
	// Unlisted patterns weigh 1.0.
	SeverityWeights map[string]float64

	// Threshold is the weighted score at which a detection reaches medium
	// severity; 2x and 3x multiples reach high and critical.
	Threshold float64

	// MutationRate records how quickly this fingerprint is expected to be
	// tuned over time. Informational only.
	MutationRate float64

	compiled []*regexp.Regexp
	markers  []*regexp.Regexp
}

// compile prepares the fingerprint's regex machinery. Called once at
// library construction.
func (f *Fingerprint) compile() error {
	f.compiled = f.compiled[:0]
	for _, p := range f.Patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return fmt.Errorf("fingerprint %s: pattern %q: %w", f.Type, p, err)
		}
		f.compiled = append(f.compiled, re)
	}

	f.markers = f.markers[:0]
	for _, m := range f.SemanticMarkers {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(m) + `\b`)
		if err != nil {
			return fmt.Errorf("fingerprint %s: marker %q: %w", f.Type, m, err)
		}
		f.markers = append(f.markers, re)
	}
	return nil
}

// severityFor computes the severity for a set of pattern hit counts.
func (f *Fingerprint) severityFor(matches map[string]int) Severity {
	score := 0.0
	for pattern, count := range matches {
		weight, ok := f.SeverityWeights[pattern]
		if !ok {
			weight = 1.0
		}
		score += float64(count) * weight
	}

	switch {
	case score >= f.Threshold*3:
		return SeverityCritical
	case score >= f.Threshold*2:
		return SeverityHigh
	case score >= f.Threshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Region marks a matched span within scanned text.
type Region struct {
	Start int
	End   int
}

// Detection is one matched pathogen family within a scan.
type Detection struct {
	Type            Type
	Severity        Severity
	Confidence      float64
	MatchedPatterns []string
	InfectedRegions []Region
	Description     string
	Remediation     []string
	DetectedAt      time.Time
}

// ScanResult is the complete outcome of scanning one piece of text.
type ScanResult struct {
	TextScanned    string
	ScannedAt      time.Time
	Detections     []Detection
	HealthScore    float64
	Recommendation Recommendation
}

// Stats aggregates scan history across a session.
type Stats struct {
	TotalScans         int
	TotalDetections    int
	AverageHealth      float64
	Frequency          map[Type]int
	SeverityBreakdown  map[Severity]int
	MostCommonPathogen Type
}
