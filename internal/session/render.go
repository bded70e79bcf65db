package session

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mixbah/pdfi/internal/models"

	"github.com/dustin/go-humanize"
)

const processingAlert = "Processing your documents with AI. This may take a few moments..."

// SummaryFileName is the download name of a summary: the file name up to its
// first dot, then "_summary.txt".
func SummaryFileName(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	return name + "_summary.txt"
}

func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

func Badge(status Status) string {
	switch status {
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "processing"
	}
}

func TypeLabel(mimeType string) string {
	if mimeType == models.MimeTypePDF {
		return "PDF"
	}
	if strings.HasPrefix(mimeType, models.MimeTypeImage) {
		return "Image"
	}
	return "File"
}

// Snapshot is what a renderer shows at one moment.
type Snapshot struct {
	Files      []ProcessedFile
	History    []models.DocumentRecord
	Total      int64
	Processing bool
}

func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Files:      c.Files(),
		History:    c.History(),
		Total:      c.HistoryTotal(),
		Processing: c.IsProcessing(),
	}
}

// RenderText writes the session and history as plain text.
func RenderText(w io.Writer, snap Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if snap.Processing {
		fmt.Fprintln(tw, processingAlert)
		fmt.Fprintln(tw)
	}

	if len(snap.Files) > 0 {
		fmt.Fprintln(tw, "Processed files")
		for _, file := range snap.Files {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t[%s %d%%]\n", file.Name, TypeLabel(file.Type), FormatSize(file.Size), Badge(file.Status), file.Progress)
			if file.Summary != "" {
				fmt.Fprintf(tw, "    %s\n", indent(file.Summary, "    "))
			}
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintf(tw, "History (%d)\n", snap.Total)
	if len(snap.History) == 0 {
		fmt.Fprintln(tw, "  No history yet")
	}
	for _, record := range snap.History {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			record.ID, record.FileName, FormatSize(record.FileSize), humanize.Time(record.ProcessedAt), formatDuration(record.ProcessingTime))
	}

	return tw.Flush()
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(10 * time.Millisecond).String()
}

func indent(text string, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n"+prefix)
}
