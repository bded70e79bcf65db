package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const retentionSchedule = "@every 1h"

// RetentionJob deletes activity log entries older than the retention window.
type RetentionJob struct {
	logs   LogPruner
	days   int
	logger *zap.Logger
	now    func() time.Time
}

func NewRetentionJob(logs LogPruner, days int, logger *zap.Logger) (*RetentionJob, error) {
	if logs == nil {
		return nil, errors.New("log pruner is nil")
	}
	if days < 0 {
		return nil, errors.New("retention days must not be negative")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetentionJob{logs: logs, days: days, logger: logger, now: time.Now}, nil
}

// Run prunes once. Zero days disables pruning.
func (j *RetentionJob) Run(ctx context.Context) (int, error) {
	if j == nil {
		return 0, errors.New("retention job is nil")
	}
	if j.days == 0 {
		return 0, nil
	}

	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.logs.PruneLogs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// Start schedules Run hourly on a new cron scheduler and starts it.
func (j *RetentionJob) Start() (*cron.Cron, error) {
	if j == nil {
		return nil, errors.New("retention job is nil")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(retentionSchedule, func() {
		deleted, err := j.Run(context.Background())
		if err != nil {
			j.logger.Error("prune activity logs", zap.Error(err))
			return
		}
		j.logger.Info("pruned activity logs", zap.Int("deleted", deleted))
	}); err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
