package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"medocr/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "medocr",
	Short: "medocr - medication packaging OCR pipeline",
	Long: `medocr processes photos of medication packaging: it extracts the
visible text with a hosted vision model, reconciles it against a
reference dictionary of known medications, and persists the results
as CSV tables in blob storage.

Expiry-date photos (key suffix -fec-vec) follow a separate flow that
reads the date off the packaging and writes it into the most recent
result table.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("medocr executed")

		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
