package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/repo"

	"go.uber.org/zap"
)

const (
	DefaultHistoryPage  = 1
	DefaultHistoryLimit = 10
)

var ErrDocumentNotFound = errors.New("document not found")

type HistoryService struct {
	stores     StoreProvider
	logService LogWriter
	events     EventPublisher
	logger     *zap.Logger
}

func NewHistoryService(stores StoreProvider, logService LogWriter, events EventPublisher, logger *zap.Logger) (*HistoryService, error) {
	if stores == nil {
		return nil, errors.New("store provider is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HistoryService{
		stores:     stores,
		logService: logService,
		events:     events,
		logger:     logger,
	}, nil
}

// GetHistory returns one page of documents, newest first. Page and limit
// below 1 fall back to the defaults.
func (s *HistoryService) GetHistory(ctx context.Context, page int, limit int) (models.DocumentHistory, error) {
	if s == nil {
		return models.DocumentHistory{}, errors.New("history service is nil")
	}
	if page < 1 {
		page = DefaultHistoryPage
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return models.DocumentHistory{}, fmt.Errorf("open store: %w", err)
	}

	documents, err := store.ListDocuments(ctx, (page-1)*limit, limit)
	if err != nil {
		return models.DocumentHistory{}, err
	}
	total, err := store.CountDocuments(ctx)
	if err != nil {
		return models.DocumentHistory{}, err
	}
	if documents == nil {
		documents = []models.DocumentRecord{}
	}

	return models.DocumentHistory{
		Documents: documents,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}, nil
}

// AllDocuments returns the whole history, newest first.
func (s *HistoryService) AllDocuments(ctx context.Context) ([]models.DocumentRecord, error) {
	if s == nil {
		return nil, errors.New("history service is nil")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return store.ListDocuments(ctx, 0, 0)
}

func (s *HistoryService) GetDocument(ctx context.Context, id string) (models.DocumentRecord, error) {
	if s == nil {
		return models.DocumentRecord{}, errors.New("history service is nil")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("open store: %w", err)
	}

	record, err := store.GetDocument(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrInvalidID) {
		return models.DocumentRecord{}, ErrDocumentNotFound
	}
	if err != nil {
		return models.DocumentRecord{}, err
	}

	return record, nil
}

// DeleteDocument removes one record. ErrDocumentNotFound means nothing was
// deleted; an unparseable id is returned as repo.ErrInvalidID.
func (s *HistoryService) DeleteDocument(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("history service is nil")
	}
	if id == "" {
		return errors.New("document id is empty")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	deleted, err := store.DeleteDocument(ctx, id)
	if err != nil {
		_ = s.logService.CreateLog(ctx, LogActionDocumentDelete, LogOutcomeFail, logMessage("id=%s: %v", id, err))
		return err
	}
	if !deleted {
		_ = s.logService.CreateLog(ctx, LogActionDocumentDelete, LogOutcomeFail, logMessage("id=%s: not found", id))
		return ErrDocumentNotFound
	}

	_ = s.logService.CreateLog(ctx, LogActionDocumentDelete, LogOutcomeSuccess, logMessage("id=%s", id))

	event := DocumentEvent{Type: EventDocumentDeleted, DocumentID: id, At: time.Now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
	}

	return nil
}
