package services

import (
	"context"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/repo"
)

type LogWriter interface {
	CreateLog(ctx context.Context, action string, outcome string, message *string) error
}

type StoreProvider interface {
	Store(ctx context.Context) (repo.Store, error)
}

type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, summary string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event DocumentEvent) error
}

type UploadArchiver interface {
	Archive(ctx context.Context, upload Upload) (string, error)
}

type HistoryLister interface {
	AllDocuments(ctx context.Context) ([]models.DocumentRecord, error)
}

type LogPruner interface {
	PruneLogs(ctx context.Context, before time.Time) (int, error)
}
