package generator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dreamgate/internal/genome"
	"dreamgate/internal/guard"
)

// ModelDefault is the elaboration model used when none is configured.
const ModelDefault = "claude-sonnet-4-5-20250929"

// DefaultModel returns the elaboration model, checking DREAMGATE_MODEL first.
func DefaultModel() string {
	if model := os.Getenv("DREAMGATE_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// ClaudeConfig holds ClaudeSource configuration.
type ClaudeConfig struct {
	// APIKey for Anthropic. Falls back to ANTHROPIC_API_KEY.
	APIKey string

	// Model to use. Default: DefaultModel().
	Model string

	// MaxTokens per completion. Default 1024.
	MaxTokens int64

	// RequestsPerMinute rate-limits API calls across all sessions sharing
	// this source. Default 30.
	RequestsPerMinute int

	// Logger for call diagnostics. Optional.
	Logger *zap.Logger
}

// ClaudeSource asks the model for one elaboration sentence per ligand.
// Safe for concurrent use; the rate limiter is shared across callers.
type ClaudeSource struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClaudeSource creates a Claude-backed candidate source.
func NewClaudeSource(cfg *ClaudeConfig) (*ClaudeSource, error) {
	if cfg == nil {
		cfg = &ClaudeConfig{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel()
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = 30
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &ClaudeSource{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:    logger,
	}, nil
}

// Propose requests elaborations for the genome's ligands. The call blocks
// on the rate limiter first, so a cancelled context returns before any
// API traffic.
func (s *ClaudeSource) Propose(ctx context.Context, g *genome.ConstraintGenome, history []string) ([]*guard.ExpansionCandidate, error) {
	if len(g.Ligands) == 0 {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(g, history))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	candidates := parseCandidates(text, g)
	s.logger.Debug("claude elaboration complete",
		zap.Int("candidates", len(candidates)),
		zap.Int64("input_tokens", response.Usage.InputTokens),
		zap.Int64("output_tokens", response.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)))

	return candidates, nil
}

// buildPrompt states the genome's constraints and asks for one sentence
// per ligand, one per line, so parsing stays trivial.
func buildPrompt(g *genome.ConstraintGenome, history []string) string {
	var b strings.Builder
	b.WriteString("You are elaborating a narrative seed under strict constraints.\n\n")
	b.WriteString("Seed: " + g.SeedText + "\n")
	if g.BeatText != "" {
		b.WriteString("Beat: " + g.BeatText + "\n")
	}
	b.WriteString("\nConstraints:\n")
	b.WriteString("- Allowed characters and places: " + strings.Join(g.ScopeEntities, ", ") + ". Introduce no others.\n")
	b.WriteString("- Emotional tone: " + g.ToneVector + "\n")
	if len(g.Obligations) > 0 {
		b.WriteString("- Obligations to advance: " + strings.Join(g.Obligations, "; ") + "\n")
	}
	if len(history) > 0 {
		n := len(history)
		if n > 5 {
			history = history[n-5:]
		}
		b.WriteString("\nAlready written (do not repeat):\n")
		for _, h := range history {
			b.WriteString("- " + h + "\n")
		}
	}
	fmt.Fprintf(&b, "\nWrite exactly %d elaboration sentences, one per line, each anchored to one of these elements:\n", len(g.Ligands))
	for _, l := range g.Ligands {
		b.WriteString("- " + string(l.Type) + ": " + l.Content + "\n")
	}
	b.WriteString("\nOutput only the sentences, no numbering or commentary.")
	return b.String()
}

// parseCandidates pairs response lines with ligands in order. Extra lines
// are dropped; missing lines just mean fewer candidates this iteration.
func parseCandidates(text string, g *genome.ConstraintGenome) []*guard.ExpansionCandidate {
	var candidates []*guard.ExpansionCandidate
	i := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• \t"))
		if line == "" || i >= len(g.Ligands) {
			continue
		}
		ligand := g.Ligands[i]
		i++

		var obligations []string
		if ligand.ObligationAnchor != "" {
			obligations = []string{ligand.ObligationAnchor}
		}

		candidates = append(candidates, &guard.ExpansionCandidate{
			Content:              line,
			TargetLigand:         ligand,
			ProposedDepth:        ligand.DepthLevel + 1,
			EmotionalTone:        g.ToneVector,
			EntitiesIntroduced:   entityPattern.FindAllString(line, -1),
			ObligationsAddressed: obligations,
			GeneratedAt:          time.Now(),
		})
	}
	return candidates
}
