package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"medocr/internal/config"
	"medocr/internal/logger"
)

var processCmd = &cobra.Command{
	Use:   "process [image-file]",
	Short: "Process a local packaging photo",
	Long: `Run the extraction pipeline over a local image file without a
storage event: extract the text, reconcile it, and upload the result
table.

The flow is chosen from the file name (the -fec-vec suffix selects the
expiry-date flow) unless overridden with --flow.`,
	Example: `  # Reconcile a medication photo against the dictionary
  medocr process foto.jpg

  # Force the expiry-date flow
  medocr process foto.jpg --flow expiry`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("flow", "auto", "Flow to run: auto, medication, or expiry")
	processCmd.Flags().String("base-name", "", "Base name for the result table key (default: file name)")
	processCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	flow, _ := cmd.Flags().GetString("flow")
	baseName, _ := cmd.Flags().GetString("base-name")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Str("flow", flow).
		Msg("Starting image processing")

	image, err := readImageFile(imagePath, log)
	if err != nil {
		return err
	}

	if baseName == "" {
		ext := filepath.Ext(imagePath)
		baseName = strings.TrimSuffix(filepath.Base(imagePath), ext)
	}

	if flow == "auto" {
		flow = "medication"
		if strings.HasSuffix(strings.ToLower(baseName), "-fec-vec") {
			flow = "expiry"
		}
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

	switch flow {
	case "medication":
		result, err := handler.ProcessMedication(ctx, image, baseName)
		if err != nil {
			log.Error().Err(err).Msg("Medication flow failed")
			return err
		}
		return printJSON(map[string]string{
			"nombre_extraido":    result.Row.Extracted,
			"nombre_medicamento": result.Row.Name,
			"dosis":              result.Row.Dose,
			"s3_result_key":      result.ResultKey,
		})
	case "expiry":
		result := handler.ProcessExpiry(ctx, image)
		return printJSON(map[string]any{
			"fecha_obtenida": result.Value,
			"intentos":       result.Attempts,
			"s3_result_key":  result.UpdatedKey,
		})
	default:
		return fmt.Errorf("unknown flow %q: use auto, medication, or expiry", flow)
	}
}

// readImageFile validates the path and loads the image bytes.
func readImageFile(imagePath string, log zerolog.Logger) ([]byte, error) {
	info, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", imagePath).Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}

	ext := strings.ToLower(filepath.Ext(imagePath))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		log.Warn().Str("file", imagePath).Msg("File does not have an image extension")
	}

	return os.ReadFile(imagePath)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
