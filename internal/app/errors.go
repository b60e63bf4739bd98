package app

import (
	"errors"
	"fmt"
	"net/http"

	"labreport/api/internal/export"
	"labreport/api/internal/history"
	"labreport/api/internal/store"
	"labreport/api/internal/submission"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	errReportNotFound   = domainError(http.StatusNotFound, "REPORT_NOT_FOUND", "Report not found.", nil)
	errReportLocked     = domainError(http.StatusConflict, "REPORT_LOCKED", submission.ConflictMessage, nil)
	errSubmitInProgress = domainError(http.StatusConflict, "SUBMIT_IN_PROGRESS", "Report submission already in progress.", nil)
	errArtifactNotFound = domainError(http.StatusNotFound, "ARTIFACT_NOT_FOUND", "Report has not been submitted.", nil)
	errVersionNotFound  = domainError(http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found.", nil)
)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *submission.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message, nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large.", map[string]any{"limit": maxBytesErr.Limit}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "REPORT_NOT_FOUND", "Report not found.", nil
	case errors.Is(err, store.ErrLocked), errors.Is(err, submission.ErrConflict):
		return http.StatusConflict, "REPORT_LOCKED", submission.ConflictMessage, nil
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "VERSION_NOT_FOUND", "Version not found.", nil
	case errors.Is(err, submission.ErrRender):
		return http.StatusInternalServerError, "RENDER_FAILED", "Failed to render report.", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "INVALID_FORMAT", "Export format not supported.", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not available on this server.", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
