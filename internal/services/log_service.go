package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mixbah/pdfi/internal/models"
)

type LogService struct {
	stores StoreProvider
}

func NewLogService(stores StoreProvider) (*LogService, error) {
	if stores == nil {
		return nil, errors.New("store provider is nil")
	}

	return &LogService{stores: stores}, nil
}

func (s *LogService) CreateLog(ctx context.Context, action string, outcome string, message *string) error {
	if s == nil {
		return errors.New("log service is nil")
	}
	if s.stores == nil {
		return errors.New("store provider is nil")
	}
	if action == "" {
		return errors.New("action is empty")
	}
	if outcome == "" {
		return errors.New("outcome is empty")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	entry := models.ActivityLog{
		Datetime: time.Now().UTC(),
		Action:   action,
		Outcome:  outcome,
		Message:  message,
	}
	if err := store.InsertLog(ctx, entry); err != nil {
		return fmt.Errorf("create log: %w", err)
	}

	return nil
}

func (s *LogService) GetLogs(ctx context.Context, limit int, action string) ([]models.ActivityLog, error) {
	if s == nil {
		return nil, errors.New("log service is nil")
	}
	if s.stores == nil {
		return nil, errors.New("store provider is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	logs, err := store.ListLogs(ctx, limit, action)
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}

	return logs, nil
}

func (s *LogService) TruncateLogs(ctx context.Context) (int, error) {
	return s.deleteLogs(ctx, time.Time{})
}

// PruneLogs removes entries written before the cutoff.
func (s *LogService) PruneLogs(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		return 0, errors.New("cutoff is zero")
	}

	return s.deleteLogs(ctx, before)
}

func (s *LogService) deleteLogs(ctx context.Context, before time.Time) (int, error) {
	if s == nil {
		return 0, errors.New("log service is nil")
	}
	if s.stores == nil {
		return 0, errors.New("store provider is nil")
	}

	store, err := s.stores.Store(ctx)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}

	deleted, err := store.DeleteLogs(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("truncate logs: %w", err)
	}

	return int(deleted), nil
}

func logMessage(format string, args ...any) *string {
	msg := fmt.Sprintf(format, args...)
	return &msg
}
