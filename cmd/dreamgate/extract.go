package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dreamgate/internal/genome"
)

var extractCmd = &cobra.Command{
	Use:   "extract <seed>",
	Short: "Show the constraint genome parsed from a seed",
	Long: `Parse a narrative seed (and optional beat) into its constraint genome:
obligations, characters, tone, scope entities, and expansion ligands.

Examples:
  dreamgate extract "Maria stood in the kitchen. She must decide before morning."
  dreamgate extract "Maria stood in the kitchen." --beat "She must decide."`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		beat, _ := cmd.Flags().GetString("beat")

		g := genome.NewExtractor(logger).Extract(args[0], beat)

		bold := color.New(color.Bold)
		bold.Println("Constraint Genome")
		fmt.Println(strings.Repeat("-", 40))

		printList("Obligations", g.Obligations)
		printList("Characters", g.Characters)
		fmt.Printf("%-14s %s\n", "Tone:", g.ToneVector)
		printList("Scope", g.ScopeEntities)

		fmt.Println()
		bold.Printf("Ligands (%d)\n", len(g.Ligands))
		for _, l := range g.Ligands {
			depth := color.CyanString("d%d", l.DepthLevel)
			fmt.Printf("  [%s] %-24s %s\n", depth, l.Type, l.Content)
			if l.ObligationAnchor != "" {
				fmt.Printf("       %s %s\n", color.YellowString("anchors:"), l.ObligationAnchor)
			}
		}
	},
}

func printList(label string, items []string) {
	if len(items) == 0 {
		fmt.Printf("%-14s %s\n", label+":", color.HiBlackString("(none)"))
		return
	}
	fmt.Printf("%-14s %s\n", label+":", strings.Join(items, ", "))
}

func init() {
	extractCmd.Flags().String("beat", "", "Beat text to extract alongside the seed")
	rootCmd.AddCommand(extractCmd)
}
