package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 500
)

var activityActions = map[string]bool{
	services.LogActionDocumentProcess: true,
	services.LogActionDocumentPersist: true,
	services.LogActionDocumentDelete:  true,
	services.LogActionHistoryExport:   true,
}

// ActivityLogReader lists and removes activity log entries.
type ActivityLogReader interface {
	GetLogs(ctx context.Context, limit int, action string) ([]models.ActivityLog, error)
	TruncateLogs(ctx context.Context) (int, error)
	PruneLogs(ctx context.Context, before time.Time) (int, error)
}

type ActivityController struct {
	logs ActivityLogReader
}

type DeleteLogsResponse struct {
	Deleted int `json:"deleted"`
}

func NewActivityController(logs ActivityLogReader) (*ActivityController, error) {
	if logs == nil {
		return nil, errors.New("log service is nil")
	}

	return &ActivityController{logs: logs}, nil
}

func (c *ActivityController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("activity controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.GET("/api/logs", c.listActivity)
	router.DELETE("/api/logs", c.deleteActivity)
	return nil
}

// listActivity answers GET /api/logs?n=&action=, newest first.
func (c *ActivityController) listActivity(ctx *gin.Context) {
	limit, err := activityLimit(ctx.Query("n"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	action := ctx.Query("action")
	if action != "" && !activityActions[action] {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Unknown action %q", action)})
		return
	}

	entries, err := c.logs.GetLogs(ctx.Request.Context(), limit, action)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch logs: " + err.Error()})
		return
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}

	ctx.JSON(http.StatusOK, entries)
}

// deleteActivity removes every entry, or only those older than ?before= (RFC 3339).
func (c *ActivityController) deleteActivity(ctx *gin.Context) {
	var (
		deleted int
		err     error
	)

	if value := ctx.Query("before"); value != "" {
		before, parseErr := time.Parse(time.RFC3339, value)
		if parseErr != nil {
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid before timestamp, expected RFC 3339"})
			return
		}
		deleted, err = c.logs.PruneLogs(ctx.Request.Context(), before)
	} else {
		deleted, err = c.logs.TruncateLogs(ctx.Request.Context())
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete logs: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, DeleteLogsResponse{Deleted: deleted})
}

func activityLimit(value string) (int, error) {
	if value == "" {
		return defaultActivityLimit, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, errors.New("Invalid logs limit")
	}
	if n > maxActivityLimit {
		n = maxActivityLimit
	}
	return n, nil
}
