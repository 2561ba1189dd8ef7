// Package config loads engine configuration from YAML. Every field has a
// working default so an empty or missing file yields a usable config; the
// file only needs to state what it overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dreamgate/internal/budget"
)

// Duration wraps time.Duration so YAML accepts "10m" style values.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// GrowthConfig tunes the expansion loop.
type GrowthConfig struct {
	// MaxIterations caps a single growth pass.
	MaxIterations int `yaml:"max_iterations"`

	// InsightThreshold is the batch quality above which budgets reset.
	InsightThreshold float64 `yaml:"insight_threshold"`

	// StagnationLimit is the consecutive no-insight iteration cap.
	StagnationLimit int `yaml:"stagnation_limit"`

	// QualityFloor terminates a pass when recent quality averages below it.
	QualityFloor float64 `yaml:"quality_floor"`

	// InsightTimeout terminates a pass that goes this long without an
	// insight reset.
	InsightTimeout Duration `yaml:"insight_timeout"`

	// Ceilings overrides per-gate budgets, keyed by category name.
	Ceilings map[string]int `yaml:"ceilings"`
}

// GeneratorConfig selects and tunes the candidate source.
type GeneratorConfig struct {
	// Source is "template" or "claude".
	Source string `yaml:"source"`

	// Model overrides the elaboration model for the claude source.
	Model string `yaml:"model"`

	// MaxTokens per completion.
	MaxTokens int64 `yaml:"max_tokens"`

	// RequestsPerMinute rate-limits API calls.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Config is the full engine configuration.
type Config struct {
	// Debug enables development logging.
	Debug bool `yaml:"debug"`

	// SnapshotPath is the SQLite snapshot database location.
	SnapshotPath string `yaml:"snapshot_path"`

	// FingerprintOverlay is an optional YAML file of pathogen fingerprint
	// tuning applied on top of the built-in library.
	FingerprintOverlay string `yaml:"fingerprint_overlay"`

	// Concurrency bounds parallel sessions.
	Concurrency int `yaml:"concurrency"`

	Growth    GrowthConfig    `yaml:"growth"`
	Generator GeneratorConfig `yaml:"generator"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SnapshotPath: ".dreamgate/snapshots.db",
		Concurrency:  4,
		Growth: GrowthConfig{
			MaxIterations:    20,
			InsightThreshold: 0.7,
			StagnationLimit:  5,
			QualityFloor:     0.3,
			InsightTimeout:   Duration(10 * time.Minute),
		},
		Generator: GeneratorConfig{
			Source:            "template",
			MaxTokens:         1024,
			RequestsPerMinute: 30,
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error; it returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Generator.Source {
	case "template", "claude":
	default:
		return fmt.Errorf("generator source must be \"template\" or \"claude\", got %q", c.Generator.Source)
	}

	if c.Growth.MaxIterations <= 0 {
		return fmt.Errorf("growth max_iterations must be positive, got %d", c.Growth.MaxIterations)
	}
	if c.Growth.InsightThreshold < 0 || c.Growth.InsightThreshold > 1 {
		return fmt.Errorf("growth insight_threshold must be in [0,1], got %v", c.Growth.InsightThreshold)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}

	for name, ceiling := range c.Growth.Ceilings {
		if _, err := parseCategory(name); err != nil {
			return err
		}
		if ceiling <= 0 {
			return fmt.Errorf("gate ceiling for %s must be positive, got %d", name, ceiling)
		}
	}
	return nil
}

// GateCeilings converts the configured ceilings to budget categories.
// Call Validate first; unknown names error here too.
func (c *Config) GateCeilings() (map[budget.Category]int, error) {
	if len(c.Growth.Ceilings) == 0 {
		return nil, nil
	}
	out := make(map[budget.Category]int, len(c.Growth.Ceilings))
	for name, ceiling := range c.Growth.Ceilings {
		cat, err := parseCategory(name)
		if err != nil {
			return nil, err
		}
		out[cat] = ceiling
	}
	return out, nil
}

func parseCategory(name string) (budget.Category, error) {
	for _, cat := range budget.Categories {
		if string(cat) == name {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unknown gate category %q", name)
}
