package session

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Progress milestones of one file.
const (
	ProgressQueued      = 0
	ProgressUploading   = 25
	ProgressSummarizing = 75
	ProgressDone        = 100
)

const noSummaryMessage = "No summary received from API"

var ErrTerminal = errors.New("file already finished processing")

// File is a local file handed to the controller.
type File struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// ProcessedFile is the session entry of one dropped file.
type ProcessedFile struct {
	ID          string
	Name        string
	Type        string
	Size        int64
	Summary     string
	Status      Status
	Progress    int
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func (f *ProcessedFile) Terminal() bool {
	return f.Status != StatusProcessing
}

func (f *ProcessedFile) Uploading() error {
	return f.advance(ProgressUploading)
}

func (f *ProcessedFile) Summarizing() error {
	return f.advance(ProgressSummarizing)
}

func (f *ProcessedFile) Complete(summary string, at time.Time) error {
	if f.Terminal() {
		return ErrTerminal
	}
	if strings.TrimSpace(summary) == "" {
		return f.Fail(noSummaryMessage)
	}

	at = at.UTC()
	f.Summary = summary
	f.Status = StatusCompleted
	f.Progress = ProgressDone
	f.ProcessedAt = &at
	return nil
}

func (f *ProcessedFile) Fail(message string) error {
	if f.Terminal() {
		return ErrTerminal
	}

	f.Summary = "Error: " + message
	f.Status = StatusError
	f.Progress = ProgressQueued
	return nil
}

func (f *ProcessedFile) advance(progress int) error {
	if f.Terminal() {
		return ErrTerminal
	}
	if progress < f.Progress {
		return errors.New("progress cannot go backwards")
	}

	f.Progress = progress
	return nil
}

// SortTime orders entries: processedAt when finished, createdAt otherwise.
func (f ProcessedFile) SortTime() time.Time {
	if f.ProcessedAt != nil {
		return *f.ProcessedAt
	}
	return f.CreatedAt
}
