// Package session fans independent elaboration sessions out across
// goroutines. Sessions share nothing mutable: each gets its own genome,
// gate set, and pass state, so they only contend on the read-only
// fingerprint library and the optional snapshot store.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dreamgate/internal/genome"
	"dreamgate/internal/growth"
	"dreamgate/internal/pathogen"
	"dreamgate/internal/snapshot"
)

// Request describes one elaboration session.
type Request struct {
	Chapter       string
	Scene         string
	Seed          string
	Beat          string
	MaxIterations int
}

// Result is the outcome of one session.
type Result struct {
	// ID is the generated session identifier.
	ID string

	Request Request
	Genome  *genome.ConstraintGenome
	Pass    *growth.PassResult

	// HealthScore is the pathogen health of the joined expansions, 1.0
	// when nothing was produced or no scanner is configured.
	HealthScore float64
}

// Config holds runner dependencies.
type Config struct {
	// Extractor builds each session's genome (required).
	Extractor *genome.Extractor

	// Orchestrator runs the growth passes (required).
	Orchestrator *growth.Orchestrator

	// Source proposes candidates (required).
	Source growth.CandidateSource

	// Scanner, when set, performs a final health scan per session.
	Scanner *pathogen.Scanner

	// Store, when set, persists one snapshot per session.
	Store *snapshot.Store

	// Concurrency bounds parallel sessions. Default 4.
	Concurrency int

	// Logger for session lifecycle. Optional.
	Logger *zap.Logger
}

// Runner executes batches of sessions.
type Runner struct {
	extractor    *genome.Extractor
	orchestrator *growth.Orchestrator
	source       growth.CandidateSource
	scanner      *pathogen.Scanner
	store        *snapshot.Store
	concurrency  int
	logger       *zap.Logger
}

// NewRunner creates a runner from the config.
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("candidate source is required")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		extractor:    cfg.Extractor,
		orchestrator: cfg.Orchestrator,
		source:       cfg.Source,
		scanner:      cfg.Scanner,
		store:        cfg.Store,
		concurrency:  concurrency,
		logger:       logger,
	}, nil
}

// Run executes all requests and returns results in request order. The
// first hard failure (invalid request, storage error) cancels the
// remaining sessions.
func (r *Runner) Run(ctx context.Context, requests []Request) ([]*Result, error) {
	results := make([]*Result, len(requests))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i, req := range requests {
		group.Go(func() error {
			result, err := r.runOne(ctx, req)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, req Request) (*Result, error) {
	if req.Seed == "" {
		return nil, fmt.Errorf("session %s/%s: seed text is required", req.Chapter, req.Scene)
	}
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 20
	}

	id := uuid.New().String()
	logger := r.logger.With(
		zap.String("session", id),
		zap.String("chapter", req.Chapter),
		zap.String("scene", req.Scene))
	logger.Info("session starting")

	g := r.extractor.Extract(req.Seed, req.Beat)

	pass, err := r.orchestrator.Run(ctx, g, r.source, maxIterations)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	health := 1.0
	if r.scanner != nil && len(pass.Expansions) > 0 {
		health = r.scanner.Scan(strings.Join(pass.Expansions, " ")).HealthScore
	}

	if r.store != nil && req.Chapter != "" && req.Scene != "" {
		snap := &snapshot.Snapshot{
			Chapter:        req.Chapter,
			Scene:          req.Scene,
			SeedText:       req.Seed,
			Expansions:     pass.Expansions,
			FinalPhase:     string(pass.FinalPhase),
			AverageQuality: pass.Stats.AverageQuality,
			HealthScore:    health,
		}
		if err := r.store.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
	}

	logger.Info("session complete",
		zap.Int("expansions", len(pass.Expansions)),
		zap.String("final_phase", string(pass.FinalPhase)),
		zap.Float64("health", health))

	return &Result{
		ID:          id,
		Request:     req,
		Genome:      g,
		Pass:        pass,
		HealthScore: health,
	}, nil
}
