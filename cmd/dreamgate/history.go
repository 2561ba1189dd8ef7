package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dreamgate/internal/snapshot"
)

var historyCmd = &cobra.Command{
	Use:   "history <chapter> <scene>",
	Short: "Show persisted snapshots for a scene",
	Long: `List the growth pass snapshots saved for a (chapter, scene) key,
newest first.

Examples:
  dreamgate history ch01 kitchen
  dreamgate history ch01 kitchen --limit 5 --full`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		full, _ := cmd.Flags().GetBool("full")

		store, err := snapshot.New(cfg.SnapshotPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		snaps, err := store.History(context.Background(), args[0], args[1], limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(snaps) == 0 {
			color.Yellow("No snapshots for %s/%s.", args[0], args[1])
			return
		}

		for _, snap := range snaps {
			fmt.Printf("%s  phase=%s quality=%.2f health=%s expansions=%d\n",
				snap.CreatedAt.Format("2006-01-02 15:04:05"),
				snap.FinalPhase, snap.AverageQuality,
				healthColor(snap.HealthScore).Sprintf("%.2f", snap.HealthScore),
				len(snap.Expansions))
			if full {
				for i, text := range snap.Expansions {
					fmt.Printf("  %2d. %s\n", i+1, text)
				}
			}
		}
	},
}

func init() {
	historyCmd.Flags().Int("limit", 10, "Max snapshots to show")
	historyCmd.Flags().Bool("full", false, "Print expansion text, not just summaries")
	rootCmd.AddCommand(historyCmd)
}
