package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dreamgate/internal/generator"
	"dreamgate/internal/genome"
	"dreamgate/internal/growth"
	"dreamgate/internal/guard"
	"dreamgate/internal/pathogen"
	"dreamgate/internal/session"
	"dreamgate/internal/snapshot"
)

var growCmd = &cobra.Command{
	Use:   "grow <seed> [seed...]",
	Short: "Run a growth pass over one or more seeds",
	Long: `Extract a constraint genome per seed and run the budgeted expansion
loop against it. Multiple seeds run as concurrent sessions. With
--chapter and --scene set, each pass is persisted as a snapshot.

Examples:
  dreamgate grow "Maria stood in the kitchen. She must decide before morning."
  dreamgate grow --chapter ch01 --scene kitchen --iterations 30 "Maria ..."`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		beat, _ := cmd.Flags().GetString("beat")
		chapter, _ := cmd.Flags().GetString("chapter")
		scene, _ := cmd.Flags().GetString("scene")
		iterations, _ := cmd.Flags().GetInt("iterations")
		if iterations <= 0 {
			iterations = cfg.Growth.MaxIterations
		}

		runner, store, err := buildRunner(chapter != "" && scene != "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if store != nil {
			defer store.Close()
		}

		requests := make([]session.Request, len(args))
		for i, seed := range args {
			sceneName := scene
			if len(args) > 1 && sceneName != "" {
				sceneName = fmt.Sprintf("%s-%d", scene, i+1)
			}
			requests[i] = session.Request{
				Chapter:       chapter,
				Scene:         sceneName,
				Seed:          seed,
				Beat:          beat,
				MaxIterations: iterations,
			}
		}

		results, err := runner.Run(context.Background(), requests)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, res := range results {
			printResult(res)
		}
	},
}

// buildRunner assembles the full pipeline from config.
func buildRunner(persist bool) (*session.Runner, *snapshot.Store, error) {
	library, err := buildLibrary()
	if err != nil {
		return nil, nil, err
	}

	ceilings, err := cfg.GateCeilings()
	if err != nil {
		return nil, nil, err
	}

	orch, err := growth.NewOrchestrator(&growth.OrchestratorConfig{
		Chain:   guard.NewChain(logger),
		Scanner: pathogen.NewScanner(library, logger),
		Logger:  logger,
		Growth: growth.Config{
			Ceilings:         ceilings,
			InsightThreshold: cfg.Growth.InsightThreshold,
			StagnationLimit:  cfg.Growth.StagnationLimit,
			QualityFloor:     cfg.Growth.QualityFloor,
			InsightTimeout:   time.Duration(cfg.Growth.InsightTimeout),
		},
	})
	if err != nil {
		return nil, nil, err
	}

	source, err := buildSource()
	if err != nil {
		return nil, nil, err
	}

	var store *snapshot.Store
	if persist {
		store, err = snapshot.New(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
	}

	runner, err := session.NewRunner(&session.Config{
		Extractor:    genome.NewExtractor(logger),
		Orchestrator: orch,
		Source:       source,
		Scanner:      pathogen.NewScanner(library, logger),
		Store:        store,
		Concurrency:  cfg.Concurrency,
		Logger:       logger,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}
	return runner, store, nil
}

func buildSource() (growth.CandidateSource, error) {
	switch cfg.Generator.Source {
	case "claude":
		return generator.NewClaudeSource(&generator.ClaudeConfig{
			Model:             cfg.Generator.Model,
			MaxTokens:         cfg.Generator.MaxTokens,
			RequestsPerMinute: cfg.Generator.RequestsPerMinute,
			Logger:            logger,
		})
	default:
		return generator.TemplateSource{}, nil
	}
}

func printResult(res *session.Result) {
	bold := color.New(color.Bold)

	bold.Printf("Session %s", res.ID)
	if res.Request.Scene != "" {
		fmt.Printf("  (%s/%s)", res.Request.Chapter, res.Request.Scene)
	}
	fmt.Println()

	stats := res.Pass.Stats
	fmt.Printf("  phase=%s iterations=%d insights=%d quality=%.2f health=%s budget=%.0f%%\n",
		res.Pass.FinalPhase, stats.TotalIterations, stats.InsightsGenerated,
		stats.AverageQuality,
		healthColor(res.HealthScore).Sprintf("%.2f", res.HealthScore),
		stats.BudgetUtilization*100)

	if len(res.Pass.Expansions) == 0 {
		color.Yellow("  No expansions survived validation.")
		fmt.Println()
		return
	}
	for i, text := range res.Pass.Expansions {
		fmt.Printf("  %2d. %s\n", i+1, text)
	}
	fmt.Println()
}

func init() {
	growCmd.Flags().String("beat", "", "Beat text applied to every seed")
	growCmd.Flags().String("chapter", "", "Chapter key for snapshot persistence")
	growCmd.Flags().String("scene", "", "Scene key for snapshot persistence")
	growCmd.Flags().Int("iterations", 0, "Max iterations per pass (default from config)")
	rootCmd.AddCommand(growCmd)
}
