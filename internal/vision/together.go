package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"medocr/internal/logger"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of the Together
// inference service.
const DefaultBaseURL = "https://api.together.xyz/v1"

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "meta-llama/Llama-3.2-90B-Vision-Instruct-Turbo"

// TogetherClient talks to an OpenAI-compatible chat-completions endpoint
// hosting a vision-language model.
type TogetherClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// ResolveAPIKey returns the inference API key, preferring the named
// environment variable and falling back to a JSON credentials file
// holding a TOGETHER_API_KEY field. Absence of both is a configuration
// error.
func ResolveAPIKey(envName, credentialsPath string) (string, error) {
	const op = "ResolveAPIKey"
	log := logger.WithComponent("vision")

	if key := os.Getenv(envName); key != "" {
		log.Info().Str("var", envName).Msg("Using inference API key from environment")
		return key, nil
	}
	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err == nil {
			var creds map[string]string
			if err := json.Unmarshal(data, &creds); err != nil {
				return "", WrapError(op, err, fmt.Sprintf("invalid credentials file %s", credentialsPath))
			}
			if key := creds["TOGETHER_API_KEY"]; key != "" {
				log.Info().Str("path", credentialsPath).Msg("Using inference API key from credentials file")
				return key, nil
			}
			return "", WrapError(op, ErrMissingAPIKey, fmt.Sprintf("TOGETHER_API_KEY not present in %s", credentialsPath))
		}
		if !os.IsNotExist(err) {
			return "", WrapError(op, err, fmt.Sprintf("failed to read credentials file %s", credentialsPath))
		}
	}
	return "", WrapError(op, ErrMissingAPIKey, "")
}

// NewTogetherClient builds a client for the given endpoint and model.
func NewTogetherClient(apiKey, baseURL, model string) (*TogetherClient, error) {
	if apiKey == "" {
		return nil, WrapError("NewTogetherClient", ErrMissingAPIKey, "")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &TogetherClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.WithComponent("vision-together"),
	}, nil
}

// GenerateStreaming streams one chat completion for the image and prompt
// and returns the concatenated deltas, trimmed.
func (c *TogetherClient) GenerateStreaming(ctx context.Context, image []byte, prompt string) (string, error) {
	const op = "GenerateStreaming"

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		Stream: true,
	})
	if err != nil {
		return "", WrapError(op, ErrGenerationFailed, fmt.Sprintf("stream open failed: %v", err))
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", WrapError(op, ErrGenerationFailed, fmt.Sprintf("stream read failed: %v", err))
		}
		if len(resp.Choices) > 0 {
			sb.WriteString(resp.Choices[0].Delta.Content)
		}
	}

	text := strings.TrimSpace(sb.String())
	c.log.Debug().Int("chars", len(text)).Msg("Model response accumulated")
	return text, nil
}

// ListVisionModels returns the IDs of vision-capable models on the
// endpoint (model IDs containing "Vision").
func (c *TogetherClient) ListVisionModels(ctx context.Context) ([]string, error) {
	const op = "ListVisionModels"

	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, WrapError(op, err, "model listing failed")
	}

	var ids []string
	for _, m := range list.Models {
		if strings.Contains(m.ID, "Vision") {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}
