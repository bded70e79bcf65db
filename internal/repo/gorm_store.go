package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) InsertDocument(ctx context.Context, doc models.ProcessedDocument) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("gorm store is nil")
	}

	doc.ID = uuid.NewString()
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	return doc.ID, nil
}

func (s *GormStore) ListDocuments(ctx context.Context, skip int, limit int) ([]models.DocumentRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("gorm store is nil")
	}

	query := s.db.WithContext(ctx).Order("processed_at desc")
	if skip > 0 {
		query = query.Offset(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.ProcessedDocument
	if err := query.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	records := make([]models.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.Record())
	}

	return records, nil
}

func (s *GormStore) CountDocuments(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("gorm store is nil")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ProcessedDocument{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}

	return count, nil
}

func (s *GormStore) GetDocument(ctx context.Context, id string) (models.DocumentRecord, error) {
	if s == nil || s.db == nil {
		return models.DocumentRecord{}, errors.New("gorm store is nil")
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.DocumentRecord{}, ErrInvalidID
	}

	var doc models.ProcessedDocument
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DocumentRecord{}, ErrNotFound
		}
		return models.DocumentRecord{}, fmt.Errorf("get document: %w", err)
	}

	return doc.Record(), nil
}

func (s *GormStore) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("gorm store is nil")
	}
	if _, err := uuid.Parse(id); err != nil {
		return false, ErrInvalidID
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProcessedDocument{})
	if result.Error != nil {
		return false, fmt.Errorf("delete document: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (s *GormStore) InsertLog(ctx context.Context, entry models.ActivityLog) error {
	if s == nil || s.db == nil {
		return errors.New("gorm store is nil")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("create log: %w", err)
	}

	return nil
}

func (s *GormStore) ListLogs(ctx context.Context, limit int, action string) ([]models.ActivityLog, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("gorm store is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	query := s.db.WithContext(ctx).Order("datetime desc").Limit(limit)
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}

	return logs, nil
}

func (s *GormStore) DeleteLogs(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("gorm store is nil")
	}

	var result *gorm.DB
	if before.IsZero() {
		result = s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ActivityLog{})
	} else {
		result = s.db.WithContext(ctx).Where("datetime < ?", before).Delete(&models.ActivityLog{})
	}
	if result.Error != nil {
		return 0, fmt.Errorf("delete logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("gorm store is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	return sqlDB.Close()
}
