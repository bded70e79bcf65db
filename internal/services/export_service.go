package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const historySheetName = "History"

var historyHeaders = []string{"ID", "File name", "File type", "File size (bytes)", "Processed at", "Processing time (ms)", "Summary"}

type ExportService struct {
	history    HistoryLister
	logService LogWriter
}

func NewExportService(history HistoryLister, logService LogWriter) (*ExportService, error) {
	if history == nil {
		return nil, errors.New("history lister is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}

	return &ExportService{history: history, logService: logService}, nil
}

// WriteHistory writes the full history as an XLSX workbook and returns the
// number of exported documents.
func (s *ExportService) WriteHistory(ctx context.Context, w io.Writer) (int, error) {
	if s == nil {
		return 0, errors.New("export service is nil")
	}
	if w == nil {
		return 0, errors.New("writer is nil")
	}

	documents, err := s.history.AllDocuments(ctx)
	if err != nil {
		_ = s.logService.CreateLog(ctx, LogActionHistoryExport, LogOutcomeFail, logMessage("list documents: %v", err))
		return 0, fmt.Errorf("list documents: %w", err)
	}

	workbook := excelize.NewFile()
	defer func() {
		_ = workbook.Close()
	}()

	if err := workbook.SetSheetName("Sheet1", historySheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(historyHeaders))
	for _, value := range historyHeaders {
		header = append(header, value)
	}
	if err := workbook.SetSheetRow(historySheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i, doc := range documents {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, fmt.Errorf("cell name: %w", err)
		}
		row := []interface{}{
			doc.ID,
			doc.FileName,
			doc.FileType,
			doc.FileSize,
			doc.ProcessedAt.UTC().Format(time.RFC3339),
			doc.ProcessingTime,
			doc.Summary,
		}
		if err := workbook.SetSheetRow(historySheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := workbook.SetColWidth(historySheetName, "B", "B", 32); err != nil {
		return 0, fmt.Errorf("set column width: %w", err)
	}
	if err := workbook.SetColWidth(historySheetName, "G", "G", 80); err != nil {
		return 0, fmt.Errorf("set column width: %w", err)
	}

	if _, err := workbook.WriteTo(w); err != nil {
		_ = s.logService.CreateLog(ctx, LogActionHistoryExport, LogOutcomeFail, logMessage("write workbook: %v", err))
		return 0, fmt.Errorf("write workbook: %w", err)
	}

	_ = s.logService.CreateLog(ctx, LogActionHistoryExport, LogOutcomeSuccess, logMessage("documents=%d", len(documents)))
	return len(documents), nil
}

// ReadHistorySheet returns the rows of an exported workbook, header first.
func ReadHistorySheet(r io.Reader) ([][]string, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = workbook.Close()
	}()

	rows, err := workbook.GetRows(historySheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return rows, nil
}
