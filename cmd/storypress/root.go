package main

import (
	"github.com/spf13/cobra"

	"github.com/storypress/storypress/version"
)

var (
	cfgFile string
	homeDir string
)

var rootCmd = &cobra.Command{
	Use:   "storypress",
	Short: "Personalized children's book production pipeline",
	Long: `Storypress turns a customer's story request into a print-ready book.

The pipeline includes:
  - Brief extraction and story outlining with text models
  - Reference photo analysis for consistent characters and settings
  - Per-page illustration generation with quality gating
  - Bleed processing and text overlay composition for print
  - PDF assembly and print service submission with tracking`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.storypress/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "storypress home directory (default: ~/.storypress)",
	)

	rootCmd.AddCommand(versionCmd)
}
