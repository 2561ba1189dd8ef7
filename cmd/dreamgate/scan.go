package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dreamgate/internal/pathogen"
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Scan text for narrative drift pathogens",
	Long: `Match text against the pathogen fingerprint library and report
detections, an overall health score, and a continue/suggest/block vote.

Examples:
  dreamgate scan "Years later, she remembered when her grandmother taught her."
  dreamgate scan --file chapter3.txt`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")

		var text string
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			text = string(data)
		case len(args) == 1:
			text = args[0]
		default:
			fmt.Fprintln(os.Stderr, "Error: provide text or --file")
			os.Exit(1)
		}

		library, err := buildLibrary()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		result := pathogen.NewScanner(library, logger).Scan(text)

		fmt.Printf("Health: %s    Vote: %s\n\n",
			healthColor(result.HealthScore).Sprintf("%.2f", result.HealthScore),
			voteColor(result.Recommendation).Sprint(string(result.Recommendation)))

		if len(result.Detections) == 0 {
			color.Green("No pathogens detected.")
			return
		}

		for _, d := range result.Detections {
			fmt.Printf("%s %s (confidence %.2f)\n",
				severityColor(d.Severity).Sprintf("[%s]", d.Severity), d.Type, d.Confidence)
			fmt.Printf("  %s\n", d.Description)
			for _, r := range d.Remediation {
				fmt.Printf("  - %s\n", r)
			}
			fmt.Println()
		}
	},
}

// buildLibrary loads the default fingerprints plus the configured overlay.
func buildLibrary() (*pathogen.Library, error) {
	library := pathogen.NewLibrary()
	if cfg.FingerprintOverlay == "" {
		return library, nil
	}

	data, err := os.ReadFile(cfg.FingerprintOverlay)
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint overlay: %w", err)
	}
	overlay, err := pathogen.ParseOverlay(data)
	if err != nil {
		return nil, err
	}
	if err := library.ApplyOverlay(overlay); err != nil {
		return nil, err
	}
	return library, nil
}

func healthColor(health float64) *color.Color {
	switch {
	case health >= 0.7:
		return color.New(color.FgGreen)
	case health >= 0.4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func voteColor(v pathogen.Recommendation) *color.Color {
	switch v {
	case pathogen.RecommendContinue:
		return color.New(color.FgGreen)
	case pathogen.RecommendSuggest:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func severityColor(s pathogen.Severity) *color.Color {
	switch s {
	case pathogen.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case pathogen.SeverityHigh:
		return color.New(color.FgRed)
	case pathogen.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}

func init() {
	scanCmd.Flags().String("file", "", "Read text to scan from a file")
	rootCmd.AddCommand(scanCmd)
}
