package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/repo"
	"github.com/mixbah/pdfi/internal/services"

	"github.com/gin-gonic/gin"
)

type stubHistoryService struct {
	history   models.DocumentHistory
	getErr    error
	deleteErr error
	page      int
	limit     int
	deletedID string
}

func (s *stubHistoryService) GetHistory(ctx context.Context, page int, limit int) (models.DocumentHistory, error) {
	s.page = page
	s.limit = limit
	return s.history, s.getErr
}

func (s *stubHistoryService) DeleteDocument(ctx context.Context, id string) error {
	s.deletedID = id
	return s.deleteErr
}

type stubExporter struct {
	err error
}

func (s *stubExporter) WriteHistory(ctx context.Context, w io.Writer) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return 1, err
}

func newHistoryRouter(t *testing.T, service HistoryProvider, exporter HistoryExporter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	controller, err := NewHistoryController(service, exporter)
	if err != nil {
		t.Fatalf("NewHistoryController: %v", err)
	}

	router := gin.New()
	router.Use(NoStore())
	if err := controller.RegisterRoutes(router); err != nil {
		t.Fatalf("register history routes: %v", err)
	}

	return router
}

func serve(router *gin.Engine, method string, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHistoryHandlerQueryParsing(t *testing.T) {
	cases := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 10},
		{"?page=3&limit=5", 3, 5},
		{"?page=abc&limit=xyz", 1, 10},
		{"?page=0&limit=-4", 1, 10},
		{"?limit=500", 1, 500},
	}

	for _, tc := range cases {
		service := &stubHistoryService{}
		router := newHistoryRouter(t, service, &stubExporter{})

		recorder := serve(router, http.MethodGet, "/api/history"+tc.query)
		if recorder.Code != http.StatusOK {
			t.Fatalf("%q: expected status %d, got %d", tc.query, http.StatusOK, recorder.Code)
		}
		if service.page != tc.page || service.limit != tc.limit {
			t.Fatalf("%q: page/limit = %d/%d, want %d/%d", tc.query, service.page, service.limit, tc.page, tc.limit)
		}
	}
}

func TestHistoryHandlerError(t *testing.T) {
	router := newHistoryRouter(t, &stubHistoryService{getErr: errors.New("server selection timeout")}, &stubExporter{})

	recorder := serve(router, http.MethodGet, "/api/history")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
	if msg := decodeError(t, recorder); msg != "Failed to fetch history: server selection timeout" {
		t.Fatalf("error = %q", msg)
	}
	if got := recorder.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
}

func TestHistoryDeleteMissingID(t *testing.T) {
	service := &stubHistoryService{}
	router := newHistoryRouter(t, service, &stubExporter{})

	recorder := serve(router, http.MethodDelete, "/api/history")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if msg := decodeError(t, recorder); msg != "Document ID required" {
		t.Fatalf("error = %q", msg)
	}
	if service.deletedID != "" {
		t.Fatalf("service called with %q", service.deletedID)
	}
}

func TestHistoryDeleteStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{nil, http.StatusOK, `{"success":true}`},
		{services.ErrDocumentNotFound, http.StatusNotFound, `{"error":"Document not found"}`},
		{repo.ErrInvalidID, http.StatusInternalServerError, `{"error":"Failed to delete document: invalid document id"}`},
	}

	for _, tc := range cases {
		service := &stubHistoryService{deleteErr: tc.err}
		router := newHistoryRouter(t, service, &stubExporter{})

		recorder := serve(router, http.MethodDelete, "/api/history?id=abc123")
		if recorder.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, recorder.Code)
		}
		if body := strings.TrimSpace(recorder.Body.String()); body != tc.body {
			t.Fatalf("%v: body = %s, want %s", tc.err, body, tc.body)
		}
		if service.deletedID != "abc123" {
			t.Fatalf("deleted id = %q, want abc123", service.deletedID)
		}
	}
}

func TestHistoryExport(t *testing.T) {
	router := newHistoryRouter(t, &stubHistoryService{}, &stubExporter{})

	recorder := serve(router, http.MethodGet, "/api/history/export")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.HasPrefix(got, `attachment; filename="history-`) {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if recorder.Body.String() != "PK-xlsx" {
		t.Fatalf("body = %q", recorder.Body.String())
	}
}

func TestHistoryExportFailure(t *testing.T) {
	router := newHistoryRouter(t, &stubHistoryService{}, &stubExporter{err: errors.New("store down")})

	recorder := serve(router, http.MethodGet, "/api/history/export")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
}

// The remaining tests run the real services over an in-memory store.

func newStoreHistoryRouter(t *testing.T, store repo.Store) *gin.Engine {
	t.Helper()

	provider := repo.NewStaticProvider(store)
	logService, err := services.NewLogService(provider)
	if err != nil {
		t.Fatalf("NewLogService: %v", err)
	}
	historyService, err := services.NewHistoryService(provider, logService, nil, nil)
	if err != nil {
		t.Fatalf("NewHistoryService: %v", err)
	}
	exportService, err := services.NewExportService(historyService, logService)
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}

	return newHistoryRouter(t, historyService, exportService)
}

func seedControllerHistory(t *testing.T, store repo.Store, n int) {
	t.Helper()

	base := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		_, err := store.InsertDocument(context.Background(), models.ProcessedDocument{
			FileName:    fmt.Sprintf("item-%02d.pdf", i),
			FileType:    models.MimeTypePDF,
			FileSize:    int64(i),
			Summary:     fmt.Sprintf("summary %d", i),
			ProcessedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertDocument: %v", err)
		}
	}
}

func TestHistorySecondPageFromStore(t *testing.T) {
	store := openControllerTestStore(t)
	seedControllerHistory(t, store, 25)
	router := newStoreHistoryRouter(t, store)

	recorder := serve(router, http.MethodGet, "/api/history?page=2&limit=10")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var resp models.DocumentHistory
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 25 || resp.Page != 2 || resp.Limit != 10 || len(resp.Documents) != 10 {
		t.Fatalf("history = total %d page %d limit %d docs %d", resp.Total, resp.Page, resp.Limit, len(resp.Documents))
	}
	// newest first: ranks 11..20 are items 15..06
	if resp.Documents[0].FileName != "item-15.pdf" || resp.Documents[9].FileName != "item-06.pdf" {
		t.Fatalf("page bounds = %q..%q", resp.Documents[0].FileName, resp.Documents[9].FileName)
	}
}

func TestHistoryDeleteFromStore(t *testing.T) {
	store := openControllerTestStore(t)
	seedControllerHistory(t, store, 3)
	router := newStoreHistoryRouter(t, store)

	recorder := serve(router, http.MethodDelete, "/api/history?id=0b8a3a4e-8f7e-4a43-9a8e-2b9f6a1c0d11")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
	count, err := store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	records, err := store.ListDocuments(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	recorder = serve(router, http.MethodDelete, "/api/history?id="+records[0].ID)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	count, err = store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestHistoryExportFromStore(t *testing.T) {
	store := openControllerTestStore(t)
	seedControllerHistory(t, store, 2)
	router := newStoreHistoryRouter(t, store)

	recorder := serve(router, http.MethodGet, "/api/history/export")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	rows, err := services.ReadHistorySheet(bytes.NewReader(recorder.Body.Bytes()))
	if err != nil {
		t.Fatalf("ReadHistorySheet: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "item-02.pdf" {
		t.Fatalf("rows = %v", rows)
	}
}
