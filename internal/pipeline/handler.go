package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medocr/internal/logger"
	"medocr/internal/match"
	"medocr/internal/results"
	"medocr/internal/storage"
)

// Defaults for handler options left unset.
const (
	DefaultIngestPrefix = "convertidas/"
	DefaultMaxRetries   = 5
)

// imageExtensions is the allowlist of object extensions the pipeline
// processes.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// expirySuffix marks keys that belong to the expiry-date flow.
const expirySuffix = "-fec-vec"

// TextExtractor runs the vision model over an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, prompt string) (string, error)
	ExtractTextOnce(ctx context.Context, image []byte, prompt string) string
}

// Response is the terminal outcome of handling one event.
type Response struct {
	StatusCode int
	Body       string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Storage   storage.Client
	Extractor TextExtractor

	// DictionaryBucket holds both the reference dictionary and the
	// result tables.
	DictionaryBucket string
	DictionaryKey    string
	ResultsPrefix    string

	// IngestPrefix is the only key prefix events are accepted from.
	IngestPrefix string

	MaxRetries int
	Scorer     match.Scorer
	Now        func() time.Time
}

// Handler processes upload events end to end.
type Handler struct {
	storage    storage.Client
	extractor  TextExtractor
	store      *results.Store
	dictBucket string
	dictKey    string
	ingest     string
	maxRetries int
	scorer     match.Scorer
	now        func() time.Time
	log        zerolog.Logger
}

// NewHandler builds a Handler, applying defaults for unset options.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.IngestPrefix == "" {
		opts.IngestPrefix = DefaultIngestPrefix
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Scorer == nil {
		opts.Scorer = match.DefaultScorer()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		storage:    opts.Storage,
		extractor:  opts.Extractor,
		store:      results.NewStore(opts.Storage, opts.DictionaryBucket, opts.ResultsPrefix).WithClock(opts.Now),
		dictBucket: opts.DictionaryBucket,
		dictKey:    opts.DictionaryKey,
		ingest:     opts.IngestPrefix,
		maxRetries: opts.MaxRetries,
		scorer:     opts.Scorer,
		now:        opts.Now,
		log:        logger.WithComponent("pipeline"),
	}
}

// HandleEvent routes one upload event. Events outside the ingest
// prefix, non-image keys, and self-triggered events are acknowledged
// without processing.
func (h *Handler) HandleEvent(ctx context.Context, raw []byte) Response {
	h.log.Info().Msg("Event received")

	event, err := ParseEvent(raw)
	if err != nil {
		h.log.Error().Err(err).Msg("Event is not a storage notification")
		return Response{StatusCode: 400, Body: "Evento inválido"}
	}

	record := event.Records[0]
	bucket := record.S3.Bucket.Name
	key := record.S3.Object.Key

	if strings.Contains(record.UserIdentity.PrincipalID, "Lambda") {
		h.log.Info().Str("key", key).Msg("Self-triggered event, skipping")
		return Response{StatusCode: 200, Body: "Evento generado por Lambda ignorado"}
	}

	if !strings.HasPrefix(key, h.ingest) {
		h.log.Info().Str("key", key).Msg("Key outside ingest prefix, skipping")
		return Response{StatusCode: 200, Body: "Archivo fuera de carpeta ignorado"}
	}

	ext := strings.ToLower(path.Ext(key))
	if !imageExtensions[ext] {
		h.log.Info().Str("key", key).Msg("Key is not an image, skipping")
		return Response{StatusCode: 200, Body: fmt.Sprintf("Ignorado archivo no imagen: %s", key)}
	}

	image, err := h.storage.GetObject(ctx, bucket, key)
	if err != nil {
		h.log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to download image")
		return Response{StatusCode: 500, Body: fmt.Sprintf("Error descargando imagen: %v", err)}
	}

	if isExpiryKey(key) {
		h.log.Info().Str("key", key).Msg("Expiry-date image detected")
		result := h.ProcessExpiry(ctx, image)
		body, err := json.Marshal(expiryBody(result))
		if err != nil {
			return Response{StatusCode: 500, Body: fmt.Sprintf("Error en flujo fec-vec: %v", err)}
		}
		return Response{StatusCode: 200, Body: string(body)}
	}

	baseName := strings.TrimSuffix(path.Base(key), path.Ext(key))
	result, err := h.ProcessMedication(ctx, image, baseName)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Medication flow failed")
		return Response{StatusCode: 500, Body: fmt.Sprintf("Error en procesamiento: %v", err)}
	}

	body, err := json.Marshal(medicationBody(result))
	if err != nil {
		return Response{StatusCode: 500, Body: fmt.Sprintf("Error en procesamiento: %v", err)}
	}
	return Response{StatusCode: 200, Body: string(body)}
}

// isExpiryKey reports whether the key names an expiry-date photo: an
// image whose base name ends with the expiry suffix.
func isExpiryKey(key string) bool {
	lower := strings.ToLower(key)
	ext := path.Ext(lower)
	if !imageExtensions[ext] {
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(lower, ext), expirySuffix)
}

type medicationResponse struct {
	NombreExtraido    string `json:"nombre_extraido"`
	NombreMedicamento string `json:"nombre_medicamento"`
	Dosis             string `json:"dosis"`
	S3ResultKey       string `json:"s3_result_key"`
}

func medicationBody(r MedicationResult) medicationResponse {
	return medicationResponse{
		NombreExtraido:    r.Row.Extracted,
		NombreMedicamento: r.Row.Name,
		Dosis:             r.Row.Dose,
		S3ResultKey:       r.ResultKey,
	}
}

type expiryResponse struct {
	Mensaje       string  `json:"mensaje"`
	FechaObtenida string  `json:"fecha_obtenida"`
	Intentos      int     `json:"intentos"`
	S3ResultKey   *string `json:"s3_result_key"`
}

func expiryBody(r ExpiryResult) expiryResponse {
	resp := expiryResponse{
		Mensaje:       "Fecha de vencimiento procesada",
		FechaObtenida: r.Value,
		Intentos:      r.Attempts,
	}
	if r.UpdatedKey != "" {
		resp.S3ResultKey = &r.UpdatedKey
	}
	return resp
}
