package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// GoogleVisionClient is the alternate OCR backend. It runs document text
// detection on the image; the prompt is ignored since the Vision API is
// not prompt-driven. Images without detectable text yield the same
// sentinel reply the language model uses, so downstream handling is
// uniform across backends.
type GoogleVisionClient struct {
	client *gvision.ImageAnnotatorClient
}

// NewGoogleVisionClient creates the backend with credentials from the
// environment (GOOGLE_CREDENTIALS inline JSON, GOOGLE_APPLICATION_CREDENTIALS
// file path, or application default credentials).
func NewGoogleVisionClient(ctx context.Context) (*GoogleVisionClient, error) {
	const op = "NewGoogleVisionClient"

	var client *gvision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = gvision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = gvision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = gvision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionClient{client: client}, nil
}

// GenerateStreaming implements Client with a single annotate call.
func (g *GoogleVisionClient) GenerateStreaming(ctx context.Context, image []byte, _ string) (string, error) {
	const op = "GenerateStreaming"

	resp, err := g.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	})
	if err != nil {
		return "", WrapError(op, ErrGenerationFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapError(op, ErrGenerationFailed, "no response from Vision API")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return "", WrapError(op, ErrGenerationFailed, fmt.Sprintf("Vision API error: %s", annotation.Error.Message))
	}
	if annotation.FullTextAnnotation == nil || strings.TrimSpace(annotation.FullTextAnnotation.Text) == "" {
		return NoVisibleText + ".", nil
	}
	return strings.TrimSpace(annotation.FullTextAnnotation.Text), nil
}

// Close closes the underlying annotator client.
func (g *GoogleVisionClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
