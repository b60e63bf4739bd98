package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"labreport/api/internal/report"
	"labreport/api/internal/search"
	"labreport/api/internal/util"
)

const defaultBodyLimit = 4 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	bodyLimit  int64
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	limit := service.cfg.BodyLimitBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, bodyLimit: limit, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Get("/ready", s.handleReady)

		api.Get("/report/{id}", s.handleGetReport)
		api.Get("/report/{id}/artifact", s.handleArtifact)
		api.Get("/report/{id}/history", s.handleHistory)
		api.Get("/report/{id}/history/{hash}", s.handleVersion)
		api.Get("/report/{id}/export", s.handleExport)
		api.Get("/reports", s.handleSearch)
		api.Get("/examples/{kind}", s.handleExample)

		api.Post("/draft", s.handleDraft)
		api.Post("/submit", s.handleSubmit)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found.", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.", nil)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "database": s.service.StoreKind()})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok", "kind": s.service.StoreKind()},
		"lock":     map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"kind":   s.service.StoreKind(),
			"error":  err.Error(),
		}
	}
	if err := s.service.PingLock(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["lock"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	if backend := s.service.SearchBackend(); backend != "" {
		checks["search"] = map[string]any{"status": "ok", "backend": backend}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleGetReport(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": item})
}

type reportBody struct {
	Report any `json:"report"`
}

func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	var body reportBody
	if err := s.decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	saved, err := s.service.SaveDraft(r.Context(), body.Report)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"reportId":  saved.ID,
		"status":    saved.Status,
		"updatedAt": saved.UpdatedAt,
	})
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body reportBody
	if err := s.decodeBody(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.service.Submit(r.Context(), body.Report)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, "application/pdf", result.FileName, result.Artifact)
}

func (s *HTTPServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.service.Artifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, "application/pdf", fileName, data)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.Version(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "hash"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Export(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, result.MimeType, result.Filename, result.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	limit, err := optionalInt(values.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be an integer", nil)
		return
	}
	offset, err := optionalInt(values.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "offset must be an integer", nil)
		return
	}
	query := search.Query{
		Text:         strings.TrimSpace(values.Get("q")),
		TeacherEmail: strings.TrimSpace(values.Get("teacherEmail")),
		Limit:        limit,
		Offset:       offset,
	}
	if status := strings.TrimSpace(values.Get("status")); status != "" {
		query.Status = report.ParseStatus(status)
	}
	response := s.service.Search(r.Context(), query)
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleExample(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.Example(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": item})
}

// fail maps err onto a JSON error response. Unmapped errors are logged since
// their message never reaches the client.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		s.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeFile(w http.ResponseWriter, mimeType, fileName string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.bodyLimit))
	if err := decoder.Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return domainError(http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
	}
	return nil
}

func optionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
