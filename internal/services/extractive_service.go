package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mixbah/pdfi/internal/models"

	"github.com/ledongthuc/pdf"
)

const extractiveMaxChars = 1500

// ExtractiveService summarizes without a remote model: PDFs by their leading
// text, images by format and dimensions.
type ExtractiveService struct {
	maxChars int
}

func NewExtractiveService() (*ExtractiveService, error) {
	return &ExtractiveService{maxChars: extractiveMaxChars}, nil
}

func (s *ExtractiveService) Name() string {
	return "Extractive"
}

func (s *ExtractiveService) Ready() error {
	if s == nil {
		return errors.New("extractive service is nil")
	}
	return nil
}

func (s *ExtractiveService) Summarize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	if _, err := promptFor(mimeType); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if mimeType == models.MimeTypePDF {
		return s.summarizePDF(data)
	}
	return describeImage(data, mimeType), nil
}

func (s *ExtractiveService) summarizePDF(data []byte) (summary string, err error) {
	if len(data) == 0 {
		return "", errors.New("pdf is empty")
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			summary = ""
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	pages := reader.NumPage()
	text := truncateText(strings.Join(strings.Fields(string(raw)), " "), s.maxChars)
	if text == "" {
		return fmt.Sprintf("PDF document with %d page(s). No extractable text was found.", pages), nil
	}

	return fmt.Sprintf("PDF document with %d page(s).\n\n%s", pages, text), nil
}

func describeImage(data []byte, mimeType string) string {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Sprintf("Image (%s). The dimensions could not be read and no text recognition is available offline.", mimeType)
	}

	return fmt.Sprintf("Image (%s, %s) of %dx%d pixels. No text recognition is available offline.", mimeType, format, cfg.Width, cfg.Height)
}

// truncateText cuts at the last sentence end or space before max runes.
func truncateText(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	cut := string([]rune(text)[:max])
	if idx := strings.LastIndex(cut, ". "); idx > max/2 {
		return cut[:idx+1]
	}
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}

	return cut + "..."
}
