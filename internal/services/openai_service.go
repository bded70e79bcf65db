package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mixbah/pdfi/internal/models"
)

const (
	openAiDefaultBaseURL = "https://api.openai.com"
	openAiDefaultModel   = "gpt-4o-mini"
)

type OpenAiService struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewOpenAiService(apiKey string, model string, client *http.Client, baseURL string) (*OpenAiService, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if model == "" {
		model = openAiDefaultModel
	}
	if baseURL == "" {
		baseURL = openAiDefaultBaseURL
	}

	return &OpenAiService{
		apiKey:  apiKey,
		model:   model,
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (s *OpenAiService) Name() string {
	return "OpenAI"
}

func (s *OpenAiService) Ready() error {
	if s == nil {
		return errors.New("openai service is nil")
	}
	if s.apiKey == "" {
		return &APIKeyError{Provider: "OpenAI", EnvVar: "OPENAI_API_KEY"}
	}

	return nil
}

func (s *OpenAiService) Summarize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	if s.client == nil {
		return "", errors.New("http client is nil")
	}

	prompt, err := promptFor(mimeType)
	if err != nil {
		return "", err
	}

	requestBody := openAiChatRequest{
		Model:       s.model,
		Temperature: 0,
		Messages: []openAiMessage{
			{Role: "user", Content: []openAiContentPart{
				{Type: "text", Text: prompt},
				attachmentPart(data, mimeType),
			}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(requestBody); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(s.baseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return "", fmt.Errorf("read response: %w", readErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close response: %w", closeErr)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response openAiChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("openai response has no choices")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// attachmentPart inlines the upload as a data URL: images as image_url,
// PDFs as a file part.
func attachmentPart(data []byte, mimeType string) openAiContentPart {
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	if mimeType == models.MimeTypePDF {
		return openAiContentPart{
			Type: "file",
			File: &openAiFile{Filename: "document.pdf", FileData: dataURL},
		}
	}

	return openAiContentPart{
		Type:     "image_url",
		ImageURL: &openAiImageURL{URL: dataURL},
	}
}

type openAiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAiMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
}

type openAiMessage struct {
	Role    string              `json:"role"`
	Content []openAiContentPart `json:"content"`
}

type openAiContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAiImageURL `json:"image_url,omitempty"`
	File     *openAiFile     `json:"file,omitempty"`
}

type openAiImageURL struct {
	URL string `json:"url"`
}

type openAiFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type openAiChatResponse struct {
	Choices []openAiChoice `json:"choices"`
}

type openAiChoice struct {
	Message openAiResponseMessage `json:"message"`
}

type openAiResponseMessage struct {
	Content string `json:"content"`
}
