package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/services"
	"github.com/mixbah/pdfi/internal/session"
	"github.com/mixbah/pdfi/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxFilesPerUpload bounds the request body of one browser upload.
const maxFilesPerUpload = 10

const textPlainUTF8 = "text/plain; charset=utf-8"

// DocumentReader resolves a single history entry for download.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (models.DocumentRecord, error)
}

// PagesController serves the browser UI. It owns one session controller that
// talks to the services in process.
type PagesController struct {
	session   *session.Controller
	documents DocumentReader
	renderer  *web.Renderer
	maxBytes  int64
	logger    *zap.Logger

	drops sync.WaitGroup

	mu     sync.Mutex
	alerts []web.Alert
}

func NewPagesController(processor DocumentProcessor, history HistoryProvider, documents DocumentReader, maxBytes int64, logger *zap.Logger) (*PagesController, error) {
	if processor == nil {
		return nil, errors.New("document service is nil")
	}
	if history == nil {
		return nil, errors.New("history service is nil")
	}
	if documents == nil {
		return nil, errors.New("document reader is nil")
	}
	if maxBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	controller, err := session.NewController(&localUploader{service: processor}, &localHistory{service: history}, logger.Named("session"))
	if err != nil {
		return nil, err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	return &PagesController{
		session:   controller,
		documents: documents,
		renderer:  renderer,
		maxBytes:  maxBytes,
		logger:    logger,
	}, nil
}

func (c *PagesController) RegisterRoutes(router *gin.Engine) error {
	if c == nil {
		return errors.New("pages controller is nil")
	}
	if router == nil {
		return errors.New("router is nil")
	}

	router.GET("/", c.index)
	router.POST("/upload", c.upload)
	router.POST("/history/:id/delete", c.removeHistory)
	router.POST("/clear-history", c.clearHistory)
	router.GET("/history/:id/summary", c.historySummary)
	router.GET("/files/:id/summary", c.fileSummary)
	return nil
}

// Wait blocks until every background upload finished.
func (c *PagesController) Wait() {
	c.drops.Wait()
}

func (c *PagesController) Session() *session.Controller {
	return c.session
}

func (c *PagesController) index(ctx *gin.Context) {
	if !c.session.IsProcessing() {
		if err := c.session.RefreshHistory(ctx.Request.Context()); err != nil {
			c.logger.Warn("refresh history", zap.Error(err))
			c.flash(web.AlertError, "Failed to load history: "+err.Error())
		}
	}

	page := web.Page{
		Snapshot:    c.session.Snapshot(),
		Alerts:      c.takeAlerts(),
		MaxUploadMB: int(c.maxBytes >> 20),
	}

	var buf bytes.Buffer
	if err := c.renderer.Render(&buf, page); err != nil {
		c.logger.Error("render page", zap.Error(err))
		ctx.String(http.StatusInternalServerError, "Failed to render page")
		return
	}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// upload reads the selected files, reports rejections right away and
// processes the accepted files in the background.
func (c *PagesController) upload(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxBytes*maxFilesPerUpload+multipartOverhead)

	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.flash(web.AlertError, fmt.Sprintf("Upload too large (max %d files of %dMB)", maxFilesPerUpload, c.maxBytes>>20))
		} else {
			c.flash(web.AlertError, msgNoFile)
		}
		ctx.Redirect(http.StatusSeeOther, "/")
		return
	}

	var files []session.File
	for _, header := range form.File["files"] {
		file, err := readFileHeader(header)
		if err != nil {
			c.flash(web.AlertError, fmt.Sprintf("%s: %v", header.Filename, err))
			continue
		}
		if _, err := session.Accept(file); err != nil {
			c.flash(web.AlertError, session.Rejection{Name: file.Name, Err: err}.Error())
			continue
		}
		files = append(files, file)
	}

	if len(files) > 0 {
		c.drops.Add(1)
		go func() {
			defer c.drops.Done()
			c.session.Drop(context.Background(), files)
		}()
	} else if len(form.File["files"]) == 0 {
		c.flash(web.AlertError, msgNoFile)
	}

	ctx.Redirect(http.StatusSeeOther, "/")
}

func (c *PagesController) removeHistory(ctx *gin.Context) {
	if err := c.session.Remove(ctx.Request.Context(), ctx.Param("id")); err != nil {
		c.flash(web.AlertError, "Failed to delete document: "+err.Error())
	}
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (c *PagesController) clearHistory(ctx *gin.Context) {
	deleted := c.session.ClearHistory(ctx.Request.Context())
	c.flash(web.AlertInfo, fmt.Sprintf("Deleted %d history entries", deleted))
	ctx.Redirect(http.StatusSeeOther, "/")
}

func (c *PagesController) historySummary(ctx *gin.Context) {
	record, err := c.documents.GetDocument(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			ctx.String(http.StatusNotFound, "Document not found")
			return
		}
		ctx.String(http.StatusInternalServerError, "Failed to fetch document: "+err.Error())
		return
	}

	attachSummary(ctx, record.FileName, record.Summary)
}

func (c *PagesController) fileSummary(ctx *gin.Context) {
	file, ok := c.session.File(ctx.Param("id"))
	if !ok || file.Status != session.StatusCompleted {
		ctx.String(http.StatusNotFound, "Summary not available")
		return
	}

	attachSummary(ctx, file.Name, file.Summary)
}

func attachSummary(ctx *gin.Context, fileName string, summary string) {
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.SummaryFileName(fileName)))
	ctx.Data(http.StatusOK, textPlainUTF8, []byte(summary))
}

func (c *PagesController) flash(kind string, message string) {
	c.mu.Lock()
	c.alerts = append(c.alerts, web.Alert{Kind: kind, Message: message})
	c.mu.Unlock()
}

func (c *PagesController) takeAlerts() []web.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	alerts := c.alerts
	c.alerts = nil
	return alerts
}

func readFileHeader(header *multipart.FileHeader) (session.File, error) {
	part, err := header.Open()
	if err != nil {
		return session.File{}, err
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return session.File{}, fmt.Errorf("read file: %w", err)
	}

	return session.File{
		Name: header.Filename,
		Type: detectType(header.Header.Get("Content-Type"), data),
		Size: int64(len(data)),
		Data: data,
	}, nil
}

// localUploader runs the session uploads against the document service
// without a network round trip.
type localUploader struct {
	service DocumentProcessor
}

func (u *localUploader) ProcessDocument(ctx context.Context, file session.File) (session.Result, error) {
	if err := u.service.Ready(); err != nil {
		return session.Result{}, err
	}

	result, err := u.service.Process(ctx, services.Upload{
		Name: file.Name,
		Type: file.Type,
		Size: file.Size,
		Data: file.Data,
	}, time.Now())
	if err != nil {
		return session.Result{}, err
	}

	return session.Result{Summary: result.Summary, ProcessingTime: result.ProcessingTime}, nil
}

type localHistory struct {
	service HistoryProvider
}

func (h *localHistory) History(ctx context.Context, page int, limit int) (models.DocumentHistory, error) {
	return h.service.GetHistory(ctx, page, limit)
}

func (h *localHistory) DeleteDocument(ctx context.Context, id string) error {
	return h.service.DeleteDocument(ctx, id)
}
