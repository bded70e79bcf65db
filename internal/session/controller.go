package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mixbah/pdfi/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryRefreshLimit is how many history entries the controller keeps.
const HistoryRefreshLimit = 50

type Result struct {
	Summary        string
	ProcessingTime int64
}

type Uploader interface {
	ProcessDocument(ctx context.Context, file File) (Result, error)
}

type HistoryAPI interface {
	History(ctx context.Context, page int, limit int) (models.DocumentHistory, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Controller holds the files of one session and a cached copy of the server
// history. Files of one Drop are processed one after another; concurrent
// Drops wait for each other.
type Controller struct {
	uploader Uploader
	history  HistoryAPI
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	batch sync.Mutex

	mu         sync.Mutex
	order      []string
	files      map[string]*ProcessedFile
	records    []models.DocumentRecord
	total      int64
	processing bool
}

func NewController(uploader Uploader, history HistoryAPI, logger *zap.Logger) (*Controller, error) {
	if uploader == nil {
		return nil, errors.New("uploader is nil")
	}
	if history == nil {
		return nil, errors.New("history api is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		uploader: uploader,
		history:  history,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		files:    make(map[string]*ProcessedFile),
	}, nil
}

// Drop filters the files, adds the accepted ones to the session and processes
// them sequentially. It returns the ids of the new entries and the rejected
// files.
func (c *Controller) Drop(ctx context.Context, files []File) ([]string, []Rejection) {
	accepted, rejected := filterFiles(files)
	for _, rejection := range rejected {
		c.logger.Warn("file rejected", zap.String("file", rejection.Name), zap.Error(rejection.Err))
	}
	if len(accepted) == 0 {
		return nil, rejected
	}

	ids := c.add(accepted)

	c.batch.Lock()
	defer c.batch.Unlock()

	c.setProcessing(true)
	defer c.setProcessing(false)

	for i, file := range accepted {
		c.processOne(ctx, ids[i], file)
	}

	return ids, rejected
}

func (c *Controller) add(files []File) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(files))
	for _, file := range files {
		id := c.newID()
		c.files[id] = &ProcessedFile{
			ID:        id,
			Name:      file.Name,
			Type:      file.Type,
			Size:      file.Size,
			Status:    StatusProcessing,
			Progress:  ProgressQueued,
			CreatedAt: c.now().UTC(),
		}
		c.order = append(c.order, id)
		ids = append(ids, id)
	}

	return ids
}

func (c *Controller) processOne(ctx context.Context, id string, file File) {
	c.transition(id, (*ProcessedFile).Uploading)

	result, err := c.uploader.ProcessDocument(ctx, file)
	if err != nil {
		c.logger.Warn("process file", zap.String("file", file.Name), zap.Error(err))
		c.transition(id, func(f *ProcessedFile) error { return f.Fail(err.Error()) })
		return
	}

	c.transition(id, (*ProcessedFile).Summarizing)

	at := c.now()
	c.transition(id, func(f *ProcessedFile) error { return f.Complete(result.Summary, at) })

	if entry, ok := c.File(id); ok && entry.Status == StatusCompleted {
		if err := c.RefreshHistory(ctx); err != nil {
			c.logger.Warn("refresh history", zap.Error(err))
		}
	}
}

func (c *Controller) transition(id string, step func(*ProcessedFile) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.files[id]
	if !ok {
		return
	}
	if err := step(entry); err != nil {
		c.logger.Warn("invalid transition", zap.String("file", entry.Name), zap.Error(err))
	}
}

func (c *Controller) setProcessing(value bool) {
	c.mu.Lock()
	c.processing = value
	c.mu.Unlock()
}

// RefreshHistory replaces the cached history with the newest entries.
func (c *Controller) RefreshHistory(ctx context.Context) error {
	history, err := c.history.History(ctx, 1, HistoryRefreshLimit)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.records = append([]models.DocumentRecord(nil), history.Documents...)
	c.total = history.Total
	c.mu.Unlock()

	return nil
}

// Remove deletes one history entry on the server and drops it from the cache
// once the server confirmed.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.history.DeleteDocument(ctx, id); err != nil {
		c.logger.Warn("delete history entry", zap.String("id", id), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.records[:0]
	for _, record := range c.records {
		if record.ID != id {
			kept = append(kept, record)
		}
	}
	if len(kept) < len(c.records) && c.total > 0 {
		c.total--
	}
	c.records = kept

	return nil
}

// ClearHistory deletes every cached entry one by one, refreshes and then
// empties the cache. Individual failures are logged and skipped; the number
// of deleted entries is returned.
func (c *Controller) ClearHistory(ctx context.Context) int {
	records := c.History()

	deleted := 0
	for _, record := range records {
		if err := c.history.DeleteDocument(ctx, record.ID); err != nil {
			c.logger.Warn("delete history entry", zap.String("id", record.ID), zap.Error(err))
			continue
		}
		deleted++
	}

	if err := c.RefreshHistory(ctx); err != nil {
		c.logger.Warn("refresh history", zap.Error(err))
	}

	c.mu.Lock()
	c.records = nil
	c.total = 0
	c.mu.Unlock()

	return deleted
}

func (c *Controller) File(id string) (ProcessedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.files[id]
	if !ok {
		return ProcessedFile{}, false
	}
	return *entry, true
}

// Files returns the session entries, newest first.
func (c *Controller) Files() []ProcessedFile {
	c.mu.Lock()
	files := make([]ProcessedFile, 0, len(c.order))
	for _, id := range c.order {
		files = append(files, *c.files[id])
	}
	c.mu.Unlock()

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].SortTime().After(files[j].SortTime())
	})
	return files
}

// History returns the cached history, newest first.
func (c *Controller) History() []models.DocumentRecord {
	c.mu.Lock()
	records := append([]models.DocumentRecord(nil), c.records...)
	c.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ProcessedAt.After(records[j].ProcessedAt)
	})
	return records
}

func (c *Controller) HistoryTotal() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Controller) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}
