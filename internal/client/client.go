// Package client speaks the draft/submit protocol of the report server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"labreport/api/internal/report"
)

// UnavailableMessage replaces server error text that is empty or an HTML page.
const UnavailableMessage = "Draft server unavailable. Saved locally."

var (
	// ErrRemoteUnsupported means the server has no such endpoint (404, 405, 501).
	ErrRemoteUnsupported = errors.New("remote endpoint not supported")
	// ErrConflict means the stored report is already submitted.
	ErrConflict = errors.New("remote report already submitted")
	ErrNotFound = errors.New("remote report not found")
)

// RemoteError is a non-2xx answer. Message is safe to show to a user.
type RemoteError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.kind
}

// DraftReceipt acknowledges a stored draft.
type DraftReceipt struct {
	OK        bool          `json:"ok"`
	ReportID  string        `json:"reportId"`
	Status    report.Status `json:"status"`
	UpdatedAt string        `json:"updatedAt"`
}

// Artifact is the submitted PDF.
type Artifact struct {
	Data     []byte
	FileName string
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: rc, logger: logger}
}

type reportEnvelope struct {
	Report any `json:"report"`
}

// FetchReport loads the stored copy of a report.
func (c *Client) FetchReport(ctx context.Context, id string) (report.Report, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/api/report/{id}")
	if err != nil {
		return report.Report{}, fmt.Errorf("fetch report: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return report.Report{}, ErrNotFound
	}
	if resp.IsError() {
		return report.Report{}, remoteError(resp, false)
	}

	var envelope reportEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return report.Report{}, fmt.Errorf("decode report: %w", err)
	}
	if envelope.Report == nil {
		return report.Report{}, ErrNotFound
	}
	return report.NormalizeReport(envelope.Report), nil
}

// SaveDraft stores the full report as a draft.
func (c *Client) SaveDraft(ctx context.Context, r report.Report) (DraftReceipt, error) {
	var receipt DraftReceipt
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"report": r}).
		SetResult(&receipt).
		Post("/api/draft")
	if err != nil {
		return DraftReceipt{}, fmt.Errorf("save draft: %w", err)
	}
	if resp.IsError() {
		return DraftReceipt{}, remoteError(resp, true)
	}
	c.logger.Debug("draft saved", zap.String("report_id", receipt.ReportID), zap.String("updated_at", receipt.UpdatedAt))
	return receipt, nil
}

// Submit asks the server to lock the report and returns the rendered PDF.
func (c *Client) Submit(ctx context.Context, r report.Report) (Artifact, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf, application/json").
		SetBody(map[string]any{"report": r}).
		Post("/api/submit")
	if err != nil {
		return Artifact{}, fmt.Errorf("submit report: %w", err)
	}
	if resp.IsError() {
		return Artifact{}, remoteError(resp, true)
	}

	name := report.SafeFileName(r.Title) + ".pdf"
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return Artifact{Data: resp.Body(), FileName: name}, nil
}

func remoteError(resp *resty.Response, endpointMayBeMissing bool) error {
	e := &RemoteError{StatusCode: resp.StatusCode(), Message: errorMessage(resp)}
	switch resp.StatusCode() {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		if endpointMayBeMissing {
			e.kind = ErrRemoteUnsupported
		}
	case http.StatusConflict:
		e.kind = ErrConflict
	}
	return e
}

func errorMessage(resp *resty.Response) string {
	if strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err == nil {
			return SanitizeErrorMessage(body.Error)
		}
	}
	return SanitizeErrorMessage(string(resp.Body()))
}

var htmlTag = regexp.MustCompile(`(?is)</?[a-z][\s\S]*>|^<!doctype html>`)

// SanitizeErrorMessage hides empty bodies and HTML error pages behind a
// generic message.
func SanitizeErrorMessage(message string) string {
	raw := strings.TrimSpace(message)
	if raw == "" || htmlTag.MatchString(raw) {
		return UnavailableMessage
	}
	return raw
}
