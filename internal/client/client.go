package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/mixbah/pdfi/internal/models"
	"github.com/mixbah/pdfi/internal/session"
)

var ErrNotFound = errors.New("document not found")

// APIError is a non-2xx answer of the server. Error returns the server
// message so it can be shown as is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to the summarizer HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base url is empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

type processResponse struct {
	Summary        string `json:"summary"`
	ProcessingTime int64  `json:"processingTime"`
}

// ProcessDocument uploads one file as the multipart field "file".
func (c *Client) ProcessDocument(ctx context.Context, file session.File) (session.Result, error) {
	if c == nil {
		return session.Result{}, errors.New("client is nil")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	if file.Type != "" {
		header.Set("Content-Type", file.Type)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return session.Result{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return session.Result{}, fmt.Errorf("write part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return session.Result{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process-document", &body)
	if err != nil {
		return session.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp processResponse
	if err := c.do(req, &resp); err != nil {
		return session.Result{}, err
	}

	return session.Result{Summary: resp.Summary, ProcessingTime: resp.ProcessingTime}, nil
}

func (c *Client) History(ctx context.Context, page int, limit int) (models.DocumentHistory, error) {
	if c == nil {
		return models.DocumentHistory{}, errors.New("client is nil")
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/history?"+query.Encode(), nil)
	if err != nil {
		return models.DocumentHistory{}, fmt.Errorf("create request: %w", err)
	}

	var history models.DocumentHistory
	if err := c.do(req, &history); err != nil {
		return models.DocumentHistory{}, err
	}

	return history, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if c == nil {
		return errors.New("client is nil")
	}

	query := url.Values{}
	query.Set("id", id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/history?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.do(req, nil)
}

// ExportHistory streams the XLSX export into w.
func (c *Client) ExportHistory(ctx context.Context, w io.Writer) error {
	if c == nil {
		return errors.New("client is nil")
	}
	return c.download(ctx, "/api/history/export", w)
}

// Summary streams the stored summary of one history entry into w.
func (c *Client) Summary(ctx context.Context, id string, w io.Writer) error {
	if c == nil {
		return errors.New("client is nil")
	}
	if id == "" {
		return errors.New("document id is empty")
	}
	return c.download(ctx, "/history/"+url.PathEscape(id)+"/summary", w)
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("read response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close response: %w", closeErr)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func apiError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &APIError{Status: status, Message: payload.Error}
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message}
}
