package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"medocr/internal/config"
	"medocr/internal/logger"
	"medocr/internal/vision"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available Together vision models",
	Long: `Query the Together API for available models and list the vision
models that can be used with TOGETHER_MODEL.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().Int("timeout", 60, "Request timeout in seconds")
}

func runModels(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("models")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	apiKey, err := vision.ResolveAPIKey("TOGETHER_API_KEY", cfg.OCRCredentialsPath)
	if err != nil {
		log.Error().Err(err).Msg("Together API key not configured")
		return fmt.Errorf("Together API key not configured: %w", err)
	}

	client, err := vision.NewTogetherClient(apiKey, cfg.TogetherBaseURL, cfg.TogetherModel)
	if err != nil {
		return fmt.Errorf("failed to create Together client: %w", err)
	}

	models, err := client.ListVisionModels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list models")
		return fmt.Errorf("failed to list models: %w", err)
	}

	log.Info().Int("count", len(models)).Msg("Vision models listed")
	for _, model := range models {
		marker := "  "
		if model == cfg.TogetherModel {
			marker = "* "
		}
		fmt.Printf("%s%s\n", marker, model)
	}
	return nil
}
