package pathogen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mod/semver"
)

const (
	cleanText = "Maria walked to the window and looked outside. The morning light revealed a garden."

	sentimentalText = "Maria felt deeply moved by the overwhelmingly beautiful moment, " +
		"her heart breaking with pure, innocent love that touched her soul."

	timeJumpText = "Years later, in a flashback, the temporal shift caused a " +
		"chronological break in the timeline."
)

func TestScan_CleanText(t *testing.T) {
	s := NewScanner(nil, nil)
	result := s.Scan(cleanText)

	assert.Empty(t, result.Detections)
	assert.Equal(t, 1.0, result.HealthScore)
	assert.Equal(t, RecommendContinue, result.Recommendation)
}

func TestScan_SentimentalityBloom(t *testing.T) {
	s := NewScanner(nil, nil)
	result := s.Scan(sentimentalText)

	var bloom *Detection
	for i := range result.Detections {
		if result.Detections[i].Type == SentimentalityBloom {
			bloom = &result.Detections[i]
		}
	}
	require.NotNil(t, bloom, "sentimentality bloom should be detected")

	assert.NotEqual(t, SeverityLow, bloom.Severity, "low severities are suppressed")
	assert.Greater(t, bloom.Confidence, 0.0)
	assert.LessOrEqual(t, bloom.Confidence, 0.95)
	assert.NotEmpty(t, bloom.MatchedPatterns)
	assert.NotEmpty(t, bloom.Remediation)

	assert.Contains(t, []Recommendation{RecommendSuggest, RecommendBlock}, result.Recommendation)
}

func TestScan_TwoCriticalsBlock(t *testing.T) {
	s := NewScanner(nil, nil)
	result := s.Scan(sentimentalText + " " + timeJumpText)

	criticals := 0
	for _, d := range result.Detections {
		if d.Severity == SeverityCritical {
			criticals++
		}
	}
	require.GreaterOrEqual(t, criticals, 2, "expected two critical detections, got %+v", result.Detections)
	assert.Equal(t, RecommendBlock, result.Recommendation)
}

func TestScan_HealthBounds(t *testing.T) {
	s := NewScanner(nil, nil)

	texts := []string{cleanText, sentimentalText, timeJumpText, sentimentalText + " " + timeJumpText}
	for _, text := range texts {
		result := s.Scan(text)
		assert.GreaterOrEqual(t, result.HealthScore, 0.0)
		assert.LessOrEqual(t, result.HealthScore, 1.0)
	}
}

func TestScan_LowSeveritySuppressed(t *testing.T) {
	s := NewScanner(nil, nil)

	// A single weak marker scores below every threshold and is suppressed.
	result := s.Scan("She thought about the past.")
	for _, d := range result.Detections {
		assert.NotEqual(t, SeverityLow, d.Severity)
	}
}

func TestScan_InfectedRegionsOrdered(t *testing.T) {
	s := NewScanner(nil, nil)
	result := s.Scan(timeJumpText)

	require.NotEmpty(t, result.Detections)
	for _, d := range result.Detections {
		for i := 1; i < len(d.InfectedRegions); i++ {
			assert.LessOrEqual(t, d.InfectedRegions[i-1].Start, d.InfectedRegions[i].Start)
		}
		for _, r := range d.InfectedRegions {
			assert.GreaterOrEqual(t, r.Start, 0)
			assert.LessOrEqual(t, r.End, len(timeJumpText))
		}
	}
}

func TestStats(t *testing.T) {
	s := NewScanner(nil, nil)

	assert.Equal(t, 0, s.Stats().TotalScans)

	s.Scan(cleanText)
	s.Scan(sentimentalText)
	s.Scan(sentimentalText)

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalScans)
	assert.GreaterOrEqual(t, stats.TotalDetections, 2)
	assert.Greater(t, stats.AverageHealth, 0.0)
	assert.Less(t, stats.AverageHealth, 1.0)
	assert.Equal(t, SentimentalityBloom, stats.MostCommonPathogen)
	assert.GreaterOrEqual(t, stats.Frequency[SentimentalityBloom], 2)
}

func TestLibrary_Version(t *testing.T) {
	lib := NewLibrary()
	assert.True(t, semver.IsValid(lib.Version()))
	assert.Len(t, lib.Types(), 8)
}

func TestLibrary_ApplyOverlay(t *testing.T) {
	lib := NewLibrary()

	overlay, err := ParseOverlay([]byte(`
ancestral_drift:
  patterns:
    - 'long before (?:she|he|they) arrived'
  threshold_adjustment: -10
`))
	require.NoError(t, err)
	require.NoError(t, lib.ApplyOverlay(overlay))

	f, ok := lib.Fingerprint(AncestralDrift)
	require.True(t, ok)
	assert.Contains(t, f.Patterns, `long before (?:she|he|they) arrived`)
	assert.Equal(t, 0.1, f.Threshold, "threshold adjustments floor at 0.1")
	assert.Equal(t, 1, lib.Mutations()[AncestralDrift])

	// Unknown pathogen types fail loudly.
	overlay, err = ParseOverlay([]byte("no_such_pathogen:\n  threshold_adjustment: 1\n"))
	require.NoError(t, err)
	assert.Error(t, lib.ApplyOverlay(overlay))

	// Bad regexes are rejected.
	overlay, err = ParseOverlay([]byte("scope_creep:\n  patterns: ['(']\n"))
	require.NoError(t, err)
	assert.Error(t, lib.ApplyOverlay(overlay))
}

func TestLibrary_OverlaidPatternDetects(t *testing.T) {
	lib := NewLibrary()
	overlay := Overlay{
		TonalInfection: {Patterns: []string{`unbearably whimsical`}},
	}
	require.NoError(t, lib.ApplyOverlay(overlay))

	s := NewScanner(lib, nil)
	result := s.Scan("The scene turned unbearably whimsical, a jarring tone for a funeral. " +
		"The mood whiplash shattered the atmosphere.")

	found := false
	for _, d := range result.Detections {
		if d.Type == TonalInfection {
			found = true
		}
	}
	assert.True(t, found)
}
