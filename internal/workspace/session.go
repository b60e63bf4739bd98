// Package workspace owns one editing session: the in-memory report, its
// local backup, and autosave against the remote draft endpoint.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"labreport/api/internal/client"
	"labreport/api/internal/report"
	"labreport/api/internal/submission"
)

// Local backup keys.
const (
	KeyDraft     = "labreport.draft"
	KeyReportID  = "labreport.reportId"
	KeyStartedAt = "labreport.startedAt"
)

const (
	DefaultIdleDelay    = 3 * time.Second
	DefaultSaveInterval = 15 * time.Second
)

// Trigger names what asked for a save.
type Trigger string

const (
	TriggerIdle     Trigger = "idle"
	TriggerInterval Trigger = "interval"
	TriggerManual   Trigger = "manual"
)

// LocalStore is durable client-side key/value storage.
type LocalStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Remote is the report server.
type Remote interface {
	FetchReport(ctx context.Context, id string) (report.Report, error)
	SaveDraft(ctx context.Context, r report.Report) (client.DraftReceipt, error)
	Submit(ctx context.Context, r report.Report) (client.Artifact, error)
}

type Options struct {
	IdleDelay    time.Duration
	SaveInterval time.Duration
	Now          func() time.Time
	Logger       *zap.Logger
	// RenderLocal draws the PDF when the server has no submit endpoint.
	RenderLocal submission.RenderFunc
}

// LoadResult says which copy won on load.
type LoadResult int

const (
	LoadedNew LoadResult = iota
	LoadedLocal
	LoadedRemote
)

// Status is a snapshot for the UI.
type Status struct {
	ReportID      string
	State         report.Status
	Message       string
	RemoteEnabled bool
	Saving        bool
	LastSavedAt   string
}

// Session is the single owner of editing state. All saves go through Save,
// which keeps at most one remote write in flight and coalesces the rest into
// one trailing save.
type Session struct {
	local  LocalStore
	remote Remote
	opts   Options
	logger *zap.Logger

	// localMu orders backup writes so the newest snapshot lands last.
	localMu sync.Mutex

	mu             sync.Mutex
	report         report.Report
	isSaving       bool
	pendingSave    bool
	remoteDisabled bool
	message        string
	lastSavedAt    string

	running  bool
	timerCtx context.Context
	idle     *time.Timer
	stopTick chan struct{}
}

// New creates a session holding a fresh report. A nil remote means
// local-only mode. Call Load to restore saved state.
func New(local LocalStore, remote Remote, opts Options) *Session {
	if opts.IdleDelay <= 0 {
		opts.IdleDelay = DefaultIdleDelay
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = DefaultSaveInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		local:          local,
		remote:         remote,
		opts:           opts,
		logger:         logger,
		report:         report.NewReport(""),
		remoteDisabled: remote == nil,
	}
}

// Report returns a copy of the current report.
func (s *Session) Report() report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report.Clone()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ReportID:      s.report.ID,
		State:         s.report.Status,
		Message:       s.message,
		RemoteEnabled: !s.remoteDisabled,
		Saving:        s.isSaving,
		LastSavedAt:   s.lastSavedAt,
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

func (s *Session) clock() string {
	return s.opts.Now().Format("15:04:05")
}

// collectLocked is the report as it would be sent: time spent is computed
// now while the report is still a draft.
func (s *Session) collectLocked() report.Report {
	r := s.report.Clone()
	if !r.IsSubmitted() && r.StartedAt > 0 {
		r.TimeSpentSeconds = report.TimeSpentSeconds(r.StartedAt, s.opts.Now())
	}
	return r
}

// Dispatch applies an edit and carries out its intents. Edits on a
// submitted report are ignored.
func (s *Session) Dispatch(ctx context.Context, cmd Command) report.Report {
	s.mu.Lock()
	next, intents := Apply(s.report, cmd, s.opts.Now())
	s.report = next
	s.mu.Unlock()

	for _, intent := range intents {
		switch intent {
		case IntentPersistLocal:
			s.persistLocal(ctx)
		case IntentScheduleSave:
			s.scheduleIdleSave()
		}
	}
	return next.Clone()
}

// persistLocal writes the backup. Failures are reported through Status and
// never stop editing.
func (s *Session) persistLocal(ctx context.Context) {
	s.localMu.Lock()
	defer s.localMu.Unlock()

	s.mu.Lock()
	snapshot := s.collectLocked()
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err == nil {
		err = s.local.Set(ctx, KeyReportID, snapshot.ID)
	}
	if err == nil {
		err = s.local.Set(ctx, KeyDraft, string(data))
	}
	if err == nil {
		err = s.local.Set(ctx, KeyStartedAt, strconv.FormatInt(snapshot.StartedAt, 10))
	}
	if err != nil {
		s.logger.Error("local backup failed", zap.String("report_id", snapshot.ID), zap.Error(err))
		s.setMessage("Local backup could not be written.")
	}
}

// Save persists locally and then, unless remote drafts are off for this
// session, sends the report to the server.
func (s *Session) Save(ctx context.Context, trigger Trigger) {
	s.mu.Lock()
	if s.report.IsSubmitted() {
		s.mu.Unlock()
		return
	}
	if s.isSaving {
		s.pendingSave = true
		s.mu.Unlock()
		return
	}
	s.isSaving = true
	if trigger == TriggerManual {
		s.message = "Saving draft..."
	}
	s.mu.Unlock()

	for {
		s.saveOnce(ctx, trigger)

		s.mu.Lock()
		if !s.pendingSave || s.report.IsSubmitted() {
			s.isSaving = false
			s.pendingSave = false
			s.mu.Unlock()
			return
		}
		s.pendingSave = false
		s.mu.Unlock()
	}
}

func (s *Session) saveOnce(ctx context.Context, trigger Trigger) {
	s.persistLocal(ctx)

	s.mu.Lock()
	localOnly := s.remoteDisabled
	snapshot := s.collectLocked()
	s.mu.Unlock()

	if localOnly {
		s.setMessage(fmt.Sprintf("Draft saved locally at %s.", s.clock()))
		return
	}

	receipt, err := s.remote.SaveDraft(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	var remoteErr *client.RemoteError
	switch {
	case err == nil:
		if s.report.ID == snapshot.ID && !s.report.IsSubmitted() {
			s.report.UpdatedAt = receipt.UpdatedAt
		}
		s.lastSavedAt = receipt.UpdatedAt
		s.message = fmt.Sprintf("Draft saved at %s.", s.clock())
	case errors.Is(err, client.ErrRemoteUnsupported):
		s.remoteDisabled = true
		s.message = fmt.Sprintf("Draft saved locally at %s.", s.clock())
		s.logger.Info("remote drafts unsupported, continuing locally", zap.String("report_id", snapshot.ID))
	case errors.Is(err, client.ErrConflict):
		s.message = submission.ConflictMessage
		s.logger.Warn("draft rejected, report already submitted", zap.String("report_id", snapshot.ID))
	case errors.As(err, &remoteErr):
		s.message = remoteErr.Message
		s.logger.Warn("draft save failed", zap.String("trigger", string(trigger)), zap.Error(err))
	default:
		s.message = fmt.Sprintf("Draft saved locally at %s.", s.clock())
		s.logger.Warn("draft save failed", zap.String("trigger", string(trigger)), zap.Error(err))
	}
}

// Load restores the local backup and reconciles it with the server copy.
// The server copy wins only when it is Submitted or nothing usable exists
// locally. There is no timestamp comparison: a local draft always beats a
// remote draft.
func (s *Session) Load(ctx context.Context) (LoadResult, error) {
	localReport, id, err := s.readLocal(ctx)
	if err != nil {
		return LoadedNew, err
	}

	result := LoadedNew
	current := report.NewReport(id)
	if localReport != nil {
		current = *localReport
		result = LoadedLocal
	}

	s.mu.Lock()
	s.report = current
	localOnly := s.remoteDisabled
	s.mu.Unlock()

	if id != "" && !localOnly {
		remote, err := s.remote.FetchReport(ctx, id)
		switch {
		case err != nil:
			if !errors.Is(err, client.ErrNotFound) {
				s.logger.Info("remote report unavailable, using local copy", zap.String("report_id", id), zap.Error(err))
			}
		case remote.IsSubmitted() || localReport == nil:
			s.mu.Lock()
			s.report = remote
			s.mu.Unlock()
			result = LoadedRemote
		}
	}

	s.persistLocal(ctx)
	return result, nil
}

func (s *Session) readLocal(ctx context.Context) (*report.Report, string, error) {
	id, _, err := s.local.Get(ctx, KeyReportID)
	if err != nil {
		return nil, "", fmt.Errorf("read report id: %w", err)
	}
	raw, ok, err := s.local.Get(ctx, KeyDraft)
	if err != nil {
		return nil, "", fmt.Errorf("read draft: %w", err)
	}
	if !ok || raw == "" {
		return nil, id, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.setMessage("Local backup could not be read.")
		return nil, id, nil
	}
	r := report.NormalizeReport(decoded)
	if r.StartedAt == 0 {
		if started, ok, _ := s.local.Get(ctx, KeyStartedAt); ok {
			if ms, err := strconv.ParseInt(started, 10, 64); err == nil && ms > 0 {
				r.StartedAt = ms
			}
		}
	}
	return &r, r.ID, nil
}

// Submit locks the report. The server renders and records the submission;
// without a submit endpoint the local renderer is used instead. On any
// failure the report stays an editable Draft.
func (s *Session) Submit(ctx context.Context) (client.Artifact, error) {
	s.mu.Lock()
	if s.report.IsSubmitted() {
		s.mu.Unlock()
		return client.Artifact{}, submission.ErrConflict
	}
	snapshot := s.collectLocked()
	localOnly := s.remoteDisabled
	s.mu.Unlock()

	if err := submission.Validate(snapshot); err != nil {
		s.setMessage(err.Error())
		return client.Artifact{}, err
	}
	s.setMessage("Generating final PDF...")

	var (
		final    report.Report
		artifact client.Artifact
		done     bool
	)
	if !localOnly {
		a, err := s.remote.Submit(ctx, snapshot)
		var remoteErr *client.RemoteError
		switch {
		case err == nil:
			stamp := s.opts.Now().UTC().Format(time.RFC3339)
			final = snapshot
			final.Status = report.StatusSubmitted
			final.SubmittedAt = stamp
			final.UpdatedAt = stamp
			artifact = a
			done = true
		case errors.Is(err, client.ErrRemoteUnsupported):
			s.mu.Lock()
			s.remoteDisabled = true
			s.mu.Unlock()
		case errors.Is(err, client.ErrConflict):
			s.setMessage(submission.ConflictMessage)
			return client.Artifact{}, submission.ErrConflict
		case errors.As(err, &remoteErr) && remoteErr.StatusCode == http.StatusBadRequest:
			s.setMessage(remoteErr.Message)
			return client.Artifact{}, &submission.ValidationError{Message: remoteErr.Message}
		default:
			s.setMessage("Failed to submit report. Your draft is still saved.")
			return client.Artifact{}, fmt.Errorf("submit: %w", err)
		}
	}

	if !done {
		if s.opts.RenderLocal == nil {
			s.setMessage("Failed to generate final PDF.")
			return client.Artifact{}, fmt.Errorf("%w: no local renderer", submission.ErrRender)
		}
		res, err := submission.Submit(snapshot, s.opts.Now(), s.opts.RenderLocal)
		if err != nil {
			s.setMessage("Failed to generate final PDF.")
			return client.Artifact{}, err
		}
		final = res.Report
		artifact = client.Artifact{Data: res.Artifact, FileName: res.FileName}
	}

	s.mu.Lock()
	s.report = final
	s.stopTimersLocked()
	s.message = "Final report downloaded. Editing is now locked."
	s.mu.Unlock()

	s.persistLocal(ctx)
	return artifact, nil
}

// Reset discards the current report, local backup included, and starts a
// new one with a new id. Timers are re-armed if they were running.
func (s *Session) Reset(ctx context.Context) report.Report {
	s.mu.Lock()
	wasRunning := s.running
	timerCtx := s.timerCtx
	s.stopTimersLocked()
	s.report = report.NewReport("")
	s.pendingSave = false
	s.message = "New report started."
	fresh := s.report.Clone()
	s.mu.Unlock()

	s.localMu.Lock()
	for _, key := range []string{KeyDraft, KeyReportID, KeyStartedAt} {
		if err := s.local.Delete(ctx, key); err != nil {
			s.logger.Error("clear local backup", zap.String("key", key), zap.Error(err))
		}
	}
	s.localMu.Unlock()
	s.persistLocal(ctx)

	if wasRunning {
		s.Start(timerCtx)
	}
	return fresh
}
