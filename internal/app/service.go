package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"labreport/api/internal/archive"
	"labreport/api/internal/config"
	"labreport/api/internal/export"
	"labreport/api/internal/history"
	"labreport/api/internal/lock"
	"labreport/api/internal/report"
	"labreport/api/internal/search"
	"labreport/api/internal/store"
	"labreport/api/internal/submission"
)

const (
	autosaveMessage = "Autosave draft"
	submitMessage   = "Submit report"
	historyLimit    = 50
)

type historyService interface {
	Record(report.Report, string) (history.Commit, error)
	Tag(string, string) error
	History(string, int) ([]history.Commit, error)
	Version(string, string) (report.Report, []history.FieldChange, error)
}

type searchService interface {
	Search(context.Context, search.Query) search.Response
	IndexReport(report.Report)
	Backend() string
}

type exporter interface {
	RenderPDF(context.Context, report.Report) ([]byte, error)
	Export(context.Context, report.Report, export.Format) (*export.Result, error)
}

type mailer interface {
	IsConfigured() bool
	SendSubmission(report.Report, []byte, string) error
}

// Deps are the collaborators behind the API. Store and Exporter are required;
// a nil Locker falls back to an in-process lock and the rest are skipped.
type Deps struct {
	Store    store.Store
	Locker   lock.Locker
	Exporter exporter
	Archive  archive.Archive
	History  historyService
	Search   searchService
	Mailer   mailer
}

type Service struct {
	cfg     config.Config
	store   store.Store
	locker  lock.Locker
	export  exporter
	archive archive.Archive
	history historyService
	search  searchService
	mailer  mailer
	logger  *zap.Logger
	now     func() time.Time

	// background tracks fire-and-forget email deliveries so shutdown can wait.
	background sync.WaitGroup
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewMemory(lock.DefaultTTL)
	}
	return &Service{
		cfg:     cfg,
		store:   deps.Store,
		locker:  locker,
		export:  deps.Exporter,
		archive: deps.Archive,
		history: deps.History,
		search:  deps.Search,
		mailer:  deps.Mailer,
		logger:  logger,
		now:     time.Now,
	}
}

// StoreKind names the persistence backend ("postgres" or "memory").
func (s *Service) StoreKind() string {
	return s.store.Kind()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingLock(ctx context.Context) error {
	return s.locker.Ping(ctx)
}

// SearchBackend names the searcher answering /api/reports, or "" when search
// is disabled.
func (s *Service) SearchBackend() string {
	if s.search == nil {
		return ""
	}
	return s.search.Backend()
}

// Wait blocks until queued submission emails are delivered.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) GetReport(ctx context.Context, id string) (report.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return report.Report{}, errReportNotFound
	}
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return report.Report{}, err
	}
	return r, nil
}

// SaveDraft stores the coerced report as a Draft. A report already Submitted
// under the same id is never overwritten.
func (s *Service) SaveDraft(ctx context.Context, raw any) (report.Report, error) {
	r := report.NormalizeReport(raw)

	existing, err := s.store.GetReport(ctx, r.ID)
	switch {
	case err == nil && existing.IsSubmitted():
		return report.Report{}, errReportLocked
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return report.Report{}, err
	}

	r.Status = report.StatusDraft
	r.SubmittedAt = ""
	r.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	if err := s.store.UpsertReport(ctx, r); err != nil {
		return report.Report{}, err
	}

	s.recordHistory(r, autosaveMessage, false)
	if s.search != nil {
		s.search.IndexReport(r)
	}
	return r, nil
}

// Submit validates, renders and persists the final report. Submits for one id
// are serialised through the locker; the loser sees a conflict.
func (s *Service) Submit(ctx context.Context, raw any) (submission.Result, error) {
	r := report.NormalizeReport(raw)
	if err := submission.Validate(r); err != nil {
		return submission.Result{}, err
	}

	token, err := s.locker.Acquire(ctx, r.ID)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return submission.Result{}, errSubmitInProgress
		}
		return submission.Result{}, err
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), r.ID, token); err != nil {
			s.logger.Warn("release submit lock", zap.String("report_id", r.ID), zap.Error(err))
		}
	}()

	existing, err := s.store.GetReport(ctx, r.ID)
	switch {
	case err == nil && existing.IsSubmitted():
		return submission.Result{}, errReportLocked
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return submission.Result{}, err
	}

	// The stored row decides whether the report is locked, not the body.
	r.Status = report.StatusDraft
	result, err := submission.Submit(r, s.now(), func(final report.Report) ([]byte, error) {
		return s.export.RenderPDF(ctx, final)
	})
	if err != nil {
		return submission.Result{}, err
	}

	if err := s.store.UpsertReport(ctx, result.Report); err != nil {
		return submission.Result{}, err
	}

	s.logger.Info("report submitted",
		zap.String("report_id", result.Report.ID),
		zap.String("file_name", result.FileName),
		zap.Int("bytes", len(result.Artifact)),
	)
	s.afterSubmit(ctx, result)
	return result, nil
}

// afterSubmit runs the best-effort side effects of a successful submit. None
// of them can undo the transition.
func (s *Service) afterSubmit(ctx context.Context, result submission.Result) {
	final := result.Report
	if s.archive != nil {
		if err := s.archive.Put(ctx, final.ID, result.Artifact); err != nil {
			s.logger.Warn("archive artifact", zap.String("report_id", final.ID), zap.Error(err))
		}
	}
	s.recordHistory(final, submitMessage, true)
	if s.search != nil {
		s.search.IndexReport(final)
	}
	if s.mailer != nil && s.mailer.IsConfigured() {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.mailer.SendSubmission(final, result.Artifact, result.FileName); err != nil {
				s.logger.Warn("send submission email", zap.String("report_id", final.ID), zap.Error(err))
			}
		}()
	}
}

func (s *Service) recordHistory(r report.Report, message string, tag bool) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Record(r, message); err != nil {
		s.logger.Warn("record history", zap.String("report_id", r.ID), zap.Error(err))
		return
	}
	if !tag {
		return
	}
	if err := s.history.Tag(r.ID, history.SubmittedTag); err != nil {
		s.logger.Warn("tag history", zap.String("report_id", r.ID), zap.Error(err))
	}
}

// Artifact returns the archived PDF of a submitted report. Reports submitted
// before the archive was configured are rendered again from the stored row.
func (s *Service) Artifact(ctx context.Context, id string) ([]byte, string, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !r.IsSubmitted() {
		return nil, "", errArtifactNotFound
	}
	fileName := report.SafeFileName(r.Title) + ".pdf"

	if s.archive != nil {
		data, err := s.archive.Get(ctx, r.ID)
		if err == nil {
			return data, fileName, nil
		}
		if !errors.Is(err, archive.ErrNotFound) {
			s.logger.Warn("read archived artifact", zap.String("report_id", r.ID), zap.Error(err))
		}
	}

	data, err := s.export.RenderPDF(ctx, r)
	if err != nil {
		return nil, "", domainError(http.StatusInternalServerError, "RENDER_FAILED", "Failed to render report.", nil)
	}
	return data, fileName, nil
}

// Export renders a stored report as DOCX, XLSX or PDF.
func (s *Service) Export(ctx context.Context, id, format string) (*export.Result, error) {
	parsed, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if !ok {
		return nil, domainError(http.StatusBadRequest, "INVALID_FORMAT", "format must be one of pdf, docx, xlsx", nil)
	}
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.export.Export(ctx, r, parsed)
}

func (s *Service) History(ctx context.Context, id string) (map[string]any, error) {
	if _, err := s.GetReport(ctx, id); err != nil {
		return nil, err
	}
	commits := []history.Commit{}
	if s.history != nil {
		items, err := s.history.History(id, historyLimit)
		if err != nil {
			return nil, err
		}
		commits = append(commits, items...)
	}
	return map[string]any{
		"reportId": id,
		"commits":  commits,
	}, nil
}

func (s *Service) Version(ctx context.Context, id, hash string) (map[string]any, error) {
	if s.history == nil {
		return nil, errVersionNotFound
	}
	if _, err := s.GetReport(ctx, id); err != nil {
		return nil, err
	}
	version, changes, err := s.history.Version(id, hash)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []history.FieldChange{}
	}
	return map[string]any{
		"reportId": id,
		"hash":     hash,
		"report":   version,
		"changes":  changes,
	}, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// Example returns a bundled sample report as a new Draft.
func (s *Service) Example(kind string) (report.Report, error) {
	r, ok := report.ExampleReport(kind)
	if !ok {
		return report.Report{}, domainError(http.StatusNotFound, "EXAMPLE_NOT_FOUND", "Example not found.", map[string]any{
			"kinds": report.ExampleKinds,
		})
	}
	return r, nil
}
