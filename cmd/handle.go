package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"medocr/internal/config"
	"medocr/internal/logger"
	"medocr/internal/pipeline"
	"medocr/internal/storage"
	"medocr/internal/vision"
)

var handleCmd = &cobra.Command{
	Use:   "handle [event-file]",
	Short: "Process a storage upload event",
	Long: `Process one storage upload notification the way the deployed
function does: download the image, run the medication or expiry-date
flow, and persist the result table.

The event JSON is read from the given file, or from stdin when no file
is given.

Required environment variables:
  DICTIONARY_BUCKET - Bucket holding the reference dictionary and results
  TOGETHER_API_KEY  - Together API key (or credentials file via OCR_CREDENTIALS_PATH)`,
	Example: `  # Process an event from a file
  medocr handle event.json

  # Process an event from stdin
  cat event.json | medocr handle`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHandle,
}

func init() {
	rootCmd.AddCommand(handleCmd)

	handleCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runHandle(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("handle")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	raw, err := readEvent(args)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read event")
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	handler, err := buildHandler(ctx, cfg, log)
	if err != nil {
		return err
	}

	resp := handler.HandleEvent(ctx, raw)
	fmt.Println(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("event handling failed with status %d", resp.StatusCode)
	}
	return nil
}

func readEvent(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// buildHandler wires the storage client, vision client, and extractor
// into a pipeline handler.
func buildHandler(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Handler, error) {
	store, err := newStorageClient(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create storage client")
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	client, err := newVisionClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	extractor := vision.NewExtractor(client, cfg.MaxRetries, cfg.RetryBackoffBase)

	return pipeline.NewHandler(pipeline.HandlerOptions{
		Storage:          store,
		Extractor:        extractor,
		DictionaryBucket: cfg.DictionaryBucket,
		DictionaryKey:    cfg.DictionaryKey,
		ResultsPrefix:    cfg.ResultsPrefix,
		IngestPrefix:     cfg.IngestPrefix,
		MaxRetries:       cfg.MaxRetries,
	}), nil
}

func newStorageClient(ctx context.Context, cfg *config.Config) (storage.Client, error) {
	var opts []storage.Option
	if cfg.S3Region != "" {
		opts = append(opts, storage.WithRegion(cfg.S3Region))
	}
	if cfg.S3Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(cfg.S3Endpoint))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, storage.WithStaticCredentials(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""))
	}
	if cfg.S3UsePathStyle {
		opts = append(opts, storage.WithPathStyle(true))
	}
	return storage.NewClient(ctx, opts...)
}

// newVisionClient creates the configured vision backend.
func newVisionClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (vision.Client, error) {
	switch cfg.OCRProvider {
	case config.ProviderGoogle:
		client, err := vision.NewGoogleVisionClient(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Google Vision client")
			return nil, fmt.Errorf("failed to create Google Vision client: %w", err)
		}
		return client, nil
	default:
		apiKey, err := vision.ResolveAPIKey("TOGETHER_API_KEY", cfg.OCRCredentialsPath)
		if err != nil {
			log.Error().Err(err).Msg("Together API key not configured")
			return nil, fmt.Errorf("Together API key not configured. Please set TOGETHER_API_KEY "+
				"or provide a credentials file via OCR_CREDENTIALS_PATH: %w", err)
		}
		client, err := vision.NewTogetherClient(apiKey, cfg.TogetherBaseURL, cfg.TogetherModel)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Together client")
			return nil, fmt.Errorf("failed to create Together client: %w", err)
		}
		return client, nil
	}
}
