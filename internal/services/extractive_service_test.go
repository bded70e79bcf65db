package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
)

// buildTestPDF writes a one-page PDF showing text in Helvetica.
func buildTestPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func TestExtractiveServicePDF(t *testing.T) {
	service, err := NewExtractiveService()
	if err != nil {
		t.Fatalf("NewExtractiveService: %v", err)
	}

	summary, err := service.Summarize(context.Background(), buildTestPDF("Quarterly revenue grew"), "application/pdf")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasPrefix(summary, "PDF document with 1 page(s).") {
		t.Fatalf("summary = %q, want page count prefix", summary)
	}
	if !strings.Contains(summary, "Quarterly revenue grew") {
		t.Fatalf("summary = %q, want extracted text", summary)
	}
}

func TestExtractiveServiceMalformedPDF(t *testing.T) {
	service, err := NewExtractiveService()
	if err != nil {
		t.Fatalf("NewExtractiveService: %v", err)
	}

	if _, err := service.Summarize(context.Background(), []byte("not a pdf at all"), "application/pdf"); err == nil {
		t.Fatalf("Summarize malformed pdf: expected error")
	}
}

func TestExtractiveServiceImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	service, err := NewExtractiveService()
	if err != nil {
		t.Fatalf("NewExtractiveService: %v", err)
	}

	summary, err := service.Summarize(context.Background(), buf.Bytes(), "image/png")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(summary, "4x3 pixels") {
		t.Fatalf("summary = %q, want dimensions", summary)
	}
}

func TestExtractiveServiceUnknownImage(t *testing.T) {
	service, err := NewExtractiveService()
	if err != nil {
		t.Fatalf("NewExtractiveService: %v", err)
	}

	summary, err := service.Summarize(context.Background(), []byte("RIFF....WEBP"), "image/webp")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.Contains(summary, "image/webp") {
		t.Fatalf("summary = %q, want mime type", summary)
	}
}

func TestExtractiveServiceUnsupportedType(t *testing.T) {
	service, err := NewExtractiveService()
	if err != nil {
		t.Fatalf("NewExtractiveService: %v", err)
	}

	if _, err := service.Summarize(context.Background(), []byte("x"), "text/csv"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Summarize error = %v, want ErrUnsupportedType", err)
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("truncateText short = %q", got)
	}

	got := truncateText("First sentence here. Second sentence is long", 30)
	if got != "First sentence here." {
		t.Fatalf("truncateText sentence = %q, want %q", got, "First sentence here.")
	}

	got = truncateText("alpha beta gamma delta", 12)
	if got != "alpha beta..." {
		t.Fatalf("truncateText words = %q, want %q", got, "alpha beta...")
	}
}
