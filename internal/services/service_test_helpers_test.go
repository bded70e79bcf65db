package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mixbah/pdfi/internal/config"
	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/repo"
)

type loggedEntry struct {
	action  string
	outcome string
	message *string
}

type stubLogWriter struct {
	entries []loggedEntry
}

func (s *stubLogWriter) CreateLog(ctx context.Context, action string, outcome string, message *string) error {
	var copied *string
	if message != nil {
		value := *message
		copied = &value
	}

	s.entries = append(s.entries, loggedEntry{
		action:  action,
		outcome: outcome,
		message: copied,
	})
	return nil
}

func (s *stubLogWriter) find(action string) []loggedEntry {
	var found []loggedEntry
	for _, entry := range s.entries {
		if entry.action == action {
			found = append(found, entry)
		}
	}
	return found
}

// openTestStore returns a migrated in-memory sqlite store private to the test.
func openTestStore(t *testing.T) *repo.GormStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := repo.Connect(config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	store, err := repo.NewGormStore(db)
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}

	return store
}

func seedHistory(t *testing.T, store repo.Store, n int) {
	t.Helper()

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		doc := models.ProcessedDocument{
			FileName:       fmt.Sprintf("doc-%02d.pdf", i),
			FileType:       models.MimeTypePDF,
			FileSize:       int64(i * 10),
			Summary:        fmt.Sprintf("summary %d", i),
			ProcessedAt:    base.Add(time.Duration(i) * time.Minute),
			ProcessingTime: int64(i),
		}
		if _, err := store.InsertDocument(context.Background(), doc); err != nil {
			t.Fatalf("InsertDocument: %v", err)
		}
	}
}

type stubSummarizer struct {
	name    string
	ready   error
	summary string
	err     error

	calls    int
	data     []byte
	mimeType string
}

func (s *stubSummarizer) Name() string {
	if s.name == "" {
		return "Stub"
	}
	return s.name
}

func (s *stubSummarizer) Ready() error {
	return s.ready
}

func (s *stubSummarizer) Summarize(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.calls++
	s.data = data
	s.mimeType = mimeType
	return s.summary, s.err
}

// failingStore fails every document write and delegates the rest.
type failingStore struct {
	repo.Store
	inserts int
}

func (s *failingStore) InsertDocument(ctx context.Context, doc models.ProcessedDocument) (string, error) {
	s.inserts++
	return "", errors.New("connection refused")
}

type mapCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func (c *mapCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return "", false, c.getErr
	}
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key] = summary
	return nil
}

type recordingPublisher struct {
	events []DocumentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event DocumentEvent) error {
	p.events = append(p.events, event)
	return nil
}

type recordingArchiver struct {
	uploads []Upload
	err     error
}

func (a *recordingArchiver) Archive(ctx context.Context, upload Upload) (string, error) {
	a.uploads = append(a.uploads, upload)
	if a.err != nil {
		return "", a.err
	}
	return "uploads/2024/03/object.pdf", nil
}
