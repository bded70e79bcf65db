package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/models"

	"go.uber.org/zap"
)

// Upload is one file received by the process endpoint.
type Upload struct {
	Name string
	Type string
	Size int64
	Data []byte
}

type ProcessResult struct {
	ID             string
	Summary        string
	ProcessingTime int64
	Cached         bool
}

type DocumentService struct {
	summarizer Summarizer
	stores     StoreProvider
	logService LogWriter
	cache      SummaryCache
	events     EventPublisher
	archive    UploadArchiver
	logger     *zap.Logger
	now        func() time.Time
}

type DocumentOption func(*DocumentService)

func WithSummaryCache(cache SummaryCache) DocumentOption {
	return func(s *DocumentService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithEventPublisher(events EventPublisher) DocumentOption {
	return func(s *DocumentService) {
		if events != nil {
			s.events = events
		}
	}
}

func WithUploadArchiver(archive UploadArchiver) DocumentOption {
	return func(s *DocumentService) {
		if archive != nil {
			s.archive = archive
		}
	}
}

func WithClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewDocumentService(summarizer Summarizer, stores StoreProvider, logService LogWriter, logger *zap.Logger, opts ...DocumentOption) (*DocumentService, error) {
	if summarizer == nil {
		return nil, errors.New("summarizer is nil")
	}
	if stores == nil {
		return nil, errors.New("store provider is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &DocumentService{
		summarizer: summarizer,
		stores:     stores,
		logService: logService,
		cache:      nopCache{},
		events:     nopPublisher{},
		archive:    nopArchiver{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Ready reports whether the summarizer can be called.
func (s *DocumentService) Ready() error {
	if s == nil {
		return errors.New("document service is nil")
	}
	if s.summarizer == nil {
		return errors.New("summarizer is nil")
	}

	return s.summarizer.Ready()
}

// Process summarizes the upload and stores the record. A failed insert is
// logged and recorded in the activity log but does not fail the call; the
// returned ID is empty in that case.
func (s *DocumentService) Process(ctx context.Context, upload Upload, start time.Time) (ProcessResult, error) {
	if err := s.Ready(); err != nil {
		return ProcessResult{}, err
	}
	if !IsSupportedType(upload.Type) {
		return ProcessResult{}, fmt.Errorf("%w: %q", ErrUnsupportedType, upload.Type)
	}

	key := CacheKey(upload.Type, upload.Data)
	summary, cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("summary cache lookup failed", zap.Error(err))
		cached = false
	}

	if !cached {
		summary, err = s.summarizer.Summarize(ctx, upload.Data, upload.Type)
		if err != nil {
			_ = s.logService.CreateLog(ctx, LogActionDocumentProcess, LogOutcomeFail,
				logMessage("file=%s provider=%s: %v", upload.Name, s.summarizer.Name(), err))
			return ProcessResult{}, err
		}
		if summary != "" {
			if err := s.cache.Set(ctx, key, summary); err != nil {
				s.logger.Warn("summary cache store failed", zap.Error(err))
			}
		}
	}

	if objectKey, err := s.archive.Archive(ctx, upload); err != nil {
		s.logger.Warn("archive upload failed", zap.String("file", upload.Name), zap.Error(err))
	} else if objectKey != "" {
		s.logger.Debug("upload archived", zap.String("file", upload.Name), zap.String("key", objectKey))
	}

	processedAt := s.now().UTC()
	result := ProcessResult{
		Summary:        summary,
		ProcessingTime: processedAt.Sub(start).Milliseconds(),
		Cached:         cached,
	}

	_ = s.logService.CreateLog(ctx, LogActionDocumentProcess, LogOutcomeSuccess,
		logMessage("file=%s type=%s size=%d cached=%t", upload.Name, upload.Type, upload.Size, cached))

	if summary == "" {
		s.logger.Warn("empty summary not persisted", zap.String("file", upload.Name))
		return result, nil
	}

	id, err := s.persist(ctx, models.ProcessedDocument{
		FileName:       upload.Name,
		FileType:       upload.Type,
		FileSize:       upload.Size,
		Summary:        summary,
		ProcessedAt:    processedAt,
		ProcessingTime: result.ProcessingTime,
	})
	if err != nil {
		s.logger.Warn("persist document failed", zap.String("file", upload.Name), zap.Error(err))
		_ = s.logService.CreateLog(ctx, LogActionDocumentPersist, LogOutcomeFail,
			logMessage("file=%s: %v", upload.Name, err))
		return result, nil
	}
	result.ID = id

	_ = s.logService.CreateLog(ctx, LogActionDocumentPersist, LogOutcomeSuccess,
		logMessage("file=%s id=%s", upload.Name, id))

	event := DocumentEvent{
		Type:           EventDocumentProcessed,
		DocumentID:     id,
		FileName:       upload.Name,
		FileType:       upload.Type,
		FileSize:       upload.Size,
		ProcessingTime: result.ProcessingTime,
		Cached:         cached,
		At:             processedAt,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
	}

	return result, nil
}

func (s *DocumentService) persist(ctx context.Context, doc models.ProcessedDocument) (string, error) {
	store, err := s.stores.Store(ctx)
	if err != nil {
		return "", fmt.Errorf("open store: %w", err)
	}

	return store.InsertDocument(ctx, doc)
}
