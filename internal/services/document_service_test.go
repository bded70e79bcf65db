package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mixbah/pdfi/internal/repo"
)

func newTestDocumentService(t *testing.T, summarizer Summarizer, store repo.Store, opts ...DocumentOption) (*DocumentService, *stubLogWriter) {
	t.Helper()

	logWriter := &stubLogWriter{}
	service, err := NewDocumentService(summarizer, repo.NewStaticProvider(store), logWriter, nil, opts...)
	if err != nil {
		t.Fatalf("NewDocumentService: %v", err)
	}

	return service, logWriter
}

func TestNewDocumentServiceValidation(t *testing.T) {
	provider := repo.NewStaticProvider(nil)
	if _, err := NewDocumentService(nil, provider, &stubLogWriter{}, nil); err == nil {
		t.Fatalf("NewDocumentService nil summarizer: expected error")
	}
	if _, err := NewDocumentService(&stubSummarizer{}, nil, &stubLogWriter{}, nil); err == nil {
		t.Fatalf("NewDocumentService nil provider: expected error")
	}
	if _, err := NewDocumentService(&stubSummarizer{}, provider, nil, nil); err == nil {
		t.Fatalf("NewDocumentService nil log writer: expected error")
	}
}

func TestDocumentServiceProcessPersists(t *testing.T) {
	store := openTestStore(t)
	summarizer := &stubSummarizer{summary: "A short summary."}
	publisher := &recordingPublisher{}
	archiver := &recordingArchiver{}

	start := time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(1500 * time.Millisecond)
	service, logWriter := newTestDocumentService(t, summarizer, store,
		WithClock(func() time.Time { return now }),
		WithEventPublisher(publisher),
		WithUploadArchiver(archiver),
	)

	upload := Upload{Name: "report.pdf", Type: "application/pdf", Size: 4, Data: []byte("%PDF")}
	result, err := service.Process(context.Background(), upload, start)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Summary != "A short summary." {
		t.Fatalf("Summary = %q, want %q", result.Summary, "A short summary.")
	}
	if result.ProcessingTime != 1500 {
		t.Fatalf("ProcessingTime = %d, want 1500", result.ProcessingTime)
	}
	if result.ID == "" {
		t.Fatalf("ID is empty")
	}
	if summarizer.mimeType != "application/pdf" {
		t.Fatalf("summarizer mime = %q, want application/pdf", summarizer.mimeType)
	}

	record, err := store.GetDocument(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if record.FileName != "report.pdf" || record.FileType != "application/pdf" || record.FileSize != 4 {
		t.Fatalf("record metadata = %+v", record)
	}
	if record.Summary != "A short summary." {
		t.Fatalf("record summary = %q", record.Summary)
	}
	if record.ProcessedAt.Before(start) {
		t.Fatalf("ProcessedAt = %v, want >= %v", record.ProcessedAt, start)
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != EventDocumentProcessed || publisher.events[0].DocumentID != result.ID {
		t.Fatalf("events = %+v, want one processed event", publisher.events)
	}
	if len(archiver.uploads) != 1 {
		t.Fatalf("archived uploads = %d, want 1", len(archiver.uploads))
	}
	if entries := logWriter.find(LogActionDocumentPersist); len(entries) != 1 || entries[0].outcome != LogOutcomeSuccess {
		t.Fatalf("persist log entries = %+v", entries)
	}
}

func TestDocumentServiceUnsupportedType(t *testing.T) {
	store := openTestStore(t)
	summarizer := &stubSummarizer{summary: "ignored"}
	service, _ := newTestDocumentService(t, summarizer, store)

	_, err := service.Process(context.Background(), Upload{Name: "notes.txt", Type: "text/plain", Data: []byte("hi")}, time.Now())
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Process error = %v, want ErrUnsupportedType", err)
	}
	if summarizer.calls != 0 {
		t.Fatalf("summarizer calls = %d, want 0", summarizer.calls)
	}

	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestDocumentServiceMissingKey(t *testing.T) {
	summarizer := &stubSummarizer{ready: &APIKeyError{Provider: "Gemini", EnvVar: "GEMINI_API_KEY"}}
	service, _ := newTestDocumentService(t, summarizer, openTestStore(t))

	if err := service.Ready(); !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("Ready error = %v, want ErrAPIKeyMissing", err)
	}
	_, err := service.Process(context.Background(), Upload{Name: "a.pdf", Type: "application/pdf"}, time.Now())
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("Process error = %v, want ErrAPIKeyMissing", err)
	}
	if summarizer.calls != 0 {
		t.Fatalf("summarizer calls = %d, want 0", summarizer.calls)
	}
}

func TestDocumentServiceGatewayFailure(t *testing.T) {
	store := openTestStore(t)
	summarizer := &stubSummarizer{err: errors.New("quota exceeded")}
	service, logWriter := newTestDocumentService(t, summarizer, store)

	_, err := service.Process(context.Background(), Upload{Name: "a.png", Type: "image/png", Data: []byte("x")}, time.Now())
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("Process error = %v, want gateway error", err)
	}

	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if entries := logWriter.find(LogActionDocumentProcess); len(entries) != 1 || entries[0].outcome != LogOutcomeFail {
		t.Fatalf("process log entries = %+v", entries)
	}
}

func TestDocumentServicePersistenceFailureIsNotSurfaced(t *testing.T) {
	store := &failingStore{Store: openTestStore(t)}
	publisher := &recordingPublisher{}
	service, logWriter := newTestDocumentService(t, &stubSummarizer{summary: "ok"}, store, WithEventPublisher(publisher))

	result, err := service.Process(context.Background(), Upload{Name: "a.pdf", Type: "application/pdf", Data: []byte("x")}, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Summary != "ok" {
		t.Fatalf("Summary = %q, want %q", result.Summary, "ok")
	}
	if result.ID != "" {
		t.Fatalf("ID = %q, want empty", result.ID)
	}
	if store.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", store.inserts)
	}

	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("events = %d, want 0", len(publisher.events))
	}
	if entries := logWriter.find(LogActionDocumentPersist); len(entries) != 1 || entries[0].outcome != LogOutcomeFail {
		t.Fatalf("persist log entries = %+v", entries)
	}
}

func TestDocumentServiceCacheHit(t *testing.T) {
	store := openTestStore(t)
	summarizer := &stubSummarizer{summary: "fresh"}
	cache := &mapCache{}
	service, _ := newTestDocumentService(t, summarizer, store, WithSummaryCache(cache))

	upload := Upload{Name: "a.pdf", Type: "application/pdf", Size: 3, Data: []byte("abc")}
	if _, err := service.Process(context.Background(), upload, time.Now()); err != nil {
		t.Fatalf("first Process: %v", err)
	}

	result, err := service.Process(context.Background(), upload, time.Now())
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if !result.Cached || result.Summary != "fresh" {
		t.Fatalf("result = %+v, want cached summary", result)
	}
	if summarizer.calls != 1 {
		t.Fatalf("summarizer calls = %d, want 1", summarizer.calls)
	}

	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestDocumentServiceCacheErrorFallsThrough(t *testing.T) {
	summarizer := &stubSummarizer{summary: "fresh"}
	service, _ := newTestDocumentService(t, summarizer, openTestStore(t), WithSummaryCache(&mapCache{getErr: errors.New("redis down")}))

	result, err := service.Process(context.Background(), Upload{Name: "a.pdf", Type: "application/pdf", Data: []byte("abc")}, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Cached || summarizer.calls != 1 {
		t.Fatalf("result = %+v calls = %d, want a fresh summary", result, summarizer.calls)
	}
}

func TestDocumentServiceArchiveFailureIgnored(t *testing.T) {
	service, _ := newTestDocumentService(t, &stubSummarizer{summary: "ok"}, openTestStore(t),
		WithUploadArchiver(&recordingArchiver{err: errors.New("bucket missing")}))

	result, err := service.Process(context.Background(), Upload{Name: "a.pdf", Type: "application/pdf", Data: []byte("x")}, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.ID == "" {
		t.Fatalf("ID is empty")
	}
}

func TestDocumentServiceEmptySummaryNotPersisted(t *testing.T) {
	store := openTestStore(t)
	service, _ := newTestDocumentService(t, &stubSummarizer{summary: ""}, store)

	result, err := service.Process(context.Background(), Upload{Name: "a.pdf", Type: "application/pdf", Data: []byte("x")}, time.Now())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Summary != "" || result.ID != "" {
		t.Fatalf("result = %+v, want empty", result)
	}

	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestDocumentServiceNilReceiver(t *testing.T) {
	var service *DocumentService
	if _, err := service.Process(context.Background(), Upload{}, time.Now()); err == nil {
		t.Fatalf("Process nil receiver: expected error")
	}
}
