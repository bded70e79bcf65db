package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mixbah/pdfi/internal/services"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead is the slack allowed on top of the file limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

const (
	msgNoFile          = "No file provided"
	msgUnsupportedType = "Unsupported file type. Please upload PDF or image files."
)

type DocumentProcessor interface {
	Ready() error
	Process(ctx context.Context, upload services.Upload, start time.Time) (services.ProcessResult, error)
}

type ProcessController struct {
	service  DocumentProcessor
	maxBytes int64
	logger   *zap.Logger
}

type ProcessResponse struct {
	Summary        string `json:"summary"`
	ProcessingTime int64  `json:"processingTime"`
}

func NewProcessController(service DocumentProcessor, maxBytes int64, logger *zap.Logger) (*ProcessController, error) {
	if service == nil {
		return nil, errors.New("document service is nil")
	}
	if maxBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProcessController{service: service, maxBytes: maxBytes, logger: logger}, nil
}

func (c *ProcessController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("process controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.POST("/api/process-document", c.processDocument)
	return nil
}

func (c *ProcessController) processDocument(ctx *gin.Context) {
	start := time.Now()

	if err := c.service.Ready(); err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	upload, status, err := c.readUpload(ctx)
	if err != nil {
		ctx.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	if !services.IsSupportedType(upload.Type) {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: msgUnsupportedType})
		return
	}

	result, err := c.service.Process(ctx.Request.Context(), upload, start)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedType):
			ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: msgUnsupportedType})
		case errors.Is(err, services.ErrAPIKeyMissing):
			ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		default:
			c.logger.Error("process document", zap.String("file", upload.Name), zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process document: " + err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, ProcessResponse{Summary: result.Summary, ProcessingTime: result.ProcessingTime})
}

// readUpload returns the "file" part with its declared type, sniffing the type
// from content only when none was sent.
func (c *ProcessController) readUpload(ctx *gin.Context) (services.Upload, int, error) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes+multipartOverhead)

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.Upload{}, http.StatusRequestEntityTooLarge, c.tooLarge()
		}
		return services.Upload{}, http.StatusBadRequest, errors.New(msgNoFile)
	}
	defer file.Close()

	if header.Size > c.maxBytes {
		return services.Upload{}, http.StatusRequestEntityTooLarge, c.tooLarge()
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Upload{}, http.StatusBadRequest, fmt.Errorf("read file: %w", err)
	}

	return services.Upload{
		Name: header.Filename,
		Type: detectType(header.Header.Get("Content-Type"), data),
		Size: int64(len(data)),
		Data: data,
	}, http.StatusOK, nil
}

func (c *ProcessController) tooLarge() error {
	return fmt.Errorf("File too large (max %dMB)", c.maxBytes>>20)
}

// detectType prefers the declared type and sniffs the content otherwise.
func detectType(declared string, data []byte) string {
	if mimeType := normalizeMimeType(declared); mimeType != "" {
		return mimeType
	}
	return normalizeMimeType(mimetype.Detect(data).String())
}

func normalizeMimeType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(value); err == nil {
		return mediaType
	}
	return strings.ToLower(value)
}
