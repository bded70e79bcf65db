package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type HistoryProvider interface {
	GetHistory(ctx context.Context, page int, limit int) (models.DocumentHistory, error)
	DeleteDocument(ctx context.Context, id string) error
}

type HistoryExporter interface {
	WriteHistory(ctx context.Context, w io.Writer) (int, error)
}

type HistoryController struct {
	service  HistoryProvider
	exporter HistoryExporter
}

func NewHistoryController(service HistoryProvider, exporter HistoryExporter) (*HistoryController, error) {
	if service == nil {
		return nil, errors.New("history service is nil")
	}
	if exporter == nil {
		return nil, errors.New("export service is nil")
	}

	return &HistoryController{service: service, exporter: exporter}, nil
}

func (c *HistoryController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("history controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.GET("/api/history", c.getHistory)
	router.DELETE("/api/history", c.deleteDocument)
	router.GET("/api/history/export", c.exportHistory)
	return nil
}

func (c *HistoryController) getHistory(ctx *gin.Context) {
	page := parsePositive(ctx.Query("page"), services.DefaultHistoryPage)
	limit := parsePositive(ctx.Query("limit"), services.DefaultHistoryLimit)

	history, err := c.service.GetHistory(ctx.Request.Context(), page, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch history: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, history)
}

func (c *HistoryController) deleteDocument(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Document ID required"})
		return
	}

	err := c.service.DeleteDocument(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "Document not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete document: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (c *HistoryController) exportHistory(ctx *gin.Context) {
	var buf bytes.Buffer
	if _, err := c.exporter.WriteHistory(ctx.Request.Context(), &buf); err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to export history: " + err.Error()})
		return
	}

	filename := fmt.Sprintf("history-%s.xlsx", time.Now().UTC().Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// parsePositive falls back to def for missing, non-numeric or < 1 values.
func parsePositive(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return def
	}
	return n
}
