package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mixbah/pdfi/internal/config"
	"github.com/mixbah/pdfi/internal/models"
)

const (
	pdfPrompt   = "Please provide a comprehensive summary of this PDF document. Include the main topics, key points, and important details. Make the summary clear and well-structured."
	imagePrompt = "Please analyze this image and provide a detailed description. Include any text you can read, objects you can identify, and the overall context or purpose of the image."
)

var (
	ErrAPIKeyMissing   = errors.New("api key not configured")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Summarizer turns the bytes of a PDF or image into a text summary.
type Summarizer interface {
	Name() string
	Ready() error
	Summarize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// APIKeyError reports a provider whose credential is not configured. It
// matches ErrAPIKeyMissing.
type APIKeyError struct {
	Provider string
	EnvVar   string
}

func (e *APIKeyError) Error() string {
	return fmt.Sprintf("%s API key not configured. Please add %s to your environment variables.", e.Provider, e.EnvVar)
}

func (e *APIKeyError) Is(target error) bool {
	return target == ErrAPIKeyMissing
}

func IsSupportedType(mimeType string) bool {
	return mimeType == models.MimeTypePDF || strings.HasPrefix(mimeType, models.MimeTypeImage)
}

func promptFor(mimeType string) (string, error) {
	switch {
	case mimeType == models.MimeTypePDF:
		return pdfPrompt, nil
	case strings.HasPrefix(mimeType, models.MimeTypeImage):
		return imagePrompt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
}

// NewSummarizer builds the provider selected in the configuration. Missing
// credentials are not an error here; they surface through Ready.
func NewSummarizer(cfg config.Config, client *http.Client) (Summarizer, error) {
	switch cfg.SummarizerProvider {
	case config.ProviderGemini:
		return NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, client, cfg.GeminiBaseURL)
	case config.ProviderOpenAI:
		return NewOpenAiService(cfg.OpenAIAPIKey, cfg.OpenAIModel, client, cfg.OpenAIBaseURL)
	case config.ProviderExtractive:
		return NewExtractiveService()
	default:
		return nil, fmt.Errorf("summarizer provider %q is not supported", cfg.SummarizerProvider)
	}
}
