package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/api/internal/client"
	"labreport/api/internal/localstore"
	"labreport/api/internal/report"
	"labreport/api/internal/submission"
)

type fakeRemote struct {
	fetchFn  func(ctx context.Context, id string) (report.Report, error)
	saveFn   func(ctx context.Context, r report.Report) (client.DraftReceipt, error)
	submitFn func(ctx context.Context, r report.Report) (client.Artifact, error)

	saves   atomic.Int32
	submits atomic.Int32
}

func (f *fakeRemote) FetchReport(ctx context.Context, id string) (report.Report, error) {
	if f.fetchFn != nil {
		return f.fetchFn(ctx, id)
	}
	return report.Report{}, client.ErrNotFound
}

func (f *fakeRemote) SaveDraft(ctx context.Context, r report.Report) (client.DraftReceipt, error) {
	f.saves.Add(1)
	if f.saveFn != nil {
		return f.saveFn(ctx, r)
	}
	return client.DraftReceipt{OK: true, ReportID: r.ID, Status: r.Status, UpdatedAt: "2026-03-01T10:00:00Z"}, nil
}

func (f *fakeRemote) Submit(ctx context.Context, r report.Report) (client.Artifact, error) {
	f.submits.Add(1)
	if f.submitFn != nil {
		return f.submitFn(ctx, r)
	}
	return client.Artifact{Data: []byte("%PDF-1.4"), FileName: "report.pdf"}, nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, remote Remote, opts Options) (*Session, *localstore.Memory) {
	t.Helper()
	local := localstore.NewMemory()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return New(local, remote, opts), local
}

func fillRequired(ctx context.Context, s *Session) {
	s.Dispatch(ctx, SetField("title", "Density of Water"))
	s.Dispatch(ctx, SetField("studentName", "Sam Rivera"))
	s.Dispatch(ctx, SetField("date", "2026-03-01"))
}

func storedDraft(t *testing.T, local *localstore.Memory) map[string]any {
	t.Helper()
	raw, ok, err := local.Get(context.Background(), KeyDraft)
	require.NoError(t, err)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestDispatchWritesLocalBackup(t *testing.T) {
	ctx := context.Background()
	s, local := newTestSession(t, &fakeRemote{}, Options{})

	s.Dispatch(ctx, SetField("studentName", "Sam Rivera"))

	draft := storedDraft(t, local)
	assert.Equal(t, "Sam Rivera", draft["studentName"])
	id, _, _ := local.Get(ctx, KeyReportID)
	assert.Equal(t, s.Report().ID, id)
	started, _, _ := local.Get(ctx, KeyStartedAt)
	assert.Equal(t, fmt.Sprint(fixedNow.UnixMilli()), started)
}

func TestSaveCoalescesToOneTrailingSave(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var (
		mu   sync.Mutex
		seen []string
	)
	remote := &fakeRemote{}
	remote.saveFn = func(_ context.Context, r report.Report) (client.DraftReceipt, error) {
		mu.Lock()
		seen = append(seen, r.Title)
		mu.Unlock()
		entered <- struct{}{}
		<-release
		return client.DraftReceipt{OK: true, ReportID: r.ID, UpdatedAt: "2026-03-01T10:00:00Z"}, nil
	}
	s, _ := newTestSession(t, remote, Options{})
	s.Dispatch(ctx, SetField("title", "first"))

	done := make(chan struct{})
	go func() {
		s.Save(ctx, TriggerManual)
		close(done)
	}()
	<-entered

	s.Dispatch(ctx, SetField("title", "second"))
	s.Save(ctx, TriggerIdle)
	s.Save(ctx, TriggerInterval)
	s.Save(ctx, TriggerManual)
	assert.True(t, s.Status().Saving)

	release <- struct{}{}
	<-entered
	release <- struct{}{}
	<-done

	assert.Equal(t, int32(2), remote.saves.Load())
	assert.Equal(t, []string{"first", "second"}, seen)
	assert.False(t, s.Status().Saving)
}

func TestSaveWritesLocalBeforeRemote(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s, local := newTestSession(t, remote, Options{})
	remote.saveFn = func(_ context.Context, r report.Report) (client.DraftReceipt, error) {
		draft := storedDraft(t, local)
		assert.Equal(t, r.Title, draft["title"])
		return client.DraftReceipt{}, errors.New("connection refused")
	}
	s.Dispatch(ctx, SetField("title", "Pendulum"))

	s.Save(ctx, TriggerManual)

	assert.Equal(t, "Draft saved locally at 10:00:00.", s.Status().Message)
	assert.True(t, s.Status().RemoteEnabled)
}

func TestSaveSuccessRecordsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(t, &fakeRemote{}, Options{})

	s.Save(ctx, TriggerManual)

	st := s.Status()
	assert.Equal(t, "Draft saved at 10:00:00.", st.Message)
	assert.Equal(t, "2026-03-01T10:00:00Z", st.LastSavedAt)
	assert.Equal(t, "2026-03-01T10:00:00Z", s.Report().UpdatedAt)
}

func TestUnsupportedRemoteDisablesDrafts(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	remote.saveFn = func(context.Context, report.Report) (client.DraftReceipt, error) {
		return client.DraftReceipt{}, fmt.Errorf("save: %w", client.ErrRemoteUnsupported)
	}
	s, _ := newTestSession(t, remote, Options{})

	s.Save(ctx, TriggerManual)
	s.Save(ctx, TriggerManual)

	assert.Equal(t, int32(1), remote.saves.Load())
	assert.False(t, s.Status().RemoteEnabled)
	assert.Equal(t, "Draft saved locally at 10:00:00.", s.Status().Message)
}

func TestRemoteErrorMessageIsShown(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	remote.saveFn = func(context.Context, report.Report) (client.DraftReceipt, error) {
		return client.DraftReceipt{}, &client.RemoteError{StatusCode: 503, Message: client.UnavailableMessage}
	}
	s, _ := newTestSession(t, remote, Options{})

	s.Save(ctx, TriggerIdle)

	assert.Equal(t, client.UnavailableMessage, s.Status().Message)
}

func TestLoadPrefersLocalDraft(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	saved := report.NewReport("rep_1")
	saved.Title = "Local title"
	data, _ := json.Marshal(saved)
	require.NoError(t, local.Set(ctx, KeyDraft, string(data)))
	require.NoError(t, local.Set(ctx, KeyReportID, "rep_1"))

	remote := &fakeRemote{fetchFn: func(_ context.Context, id string) (report.Report, error) {
		r := report.NewReport(id)
		r.Title = "Remote title"
		r.UpdatedAt = "2099-01-01T00:00:00Z"
		return r, nil
	}}
	s := New(local, remote, Options{Now: func() time.Time { return fixedNow }})

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedLocal, result)
	assert.Equal(t, "Local title", s.Report().Title)
}

func TestLoadTakesSubmittedRemote(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	saved := report.NewReport("rep_1")
	saved.Title = "Local title"
	data, _ := json.Marshal(saved)
	require.NoError(t, local.Set(ctx, KeyDraft, string(data)))

	remote := &fakeRemote{fetchFn: func(_ context.Context, id string) (report.Report, error) {
		r := report.NewReport(id)
		r.Title = "Final"
		r.Status = report.StatusSubmitted
		return r, nil
	}}
	s := New(local, remote, Options{Now: func() time.Time { return fixedNow }})

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedRemote, result)
	assert.True(t, s.Report().IsSubmitted())
	assert.Equal(t, "Submitted", storedDraft(t, local)["status"])
}

func TestLoadTakesRemoteWhenNoLocalDraft(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	require.NoError(t, local.Set(ctx, KeyReportID, "rep_9"))
	remote := &fakeRemote{fetchFn: func(_ context.Context, id string) (report.Report, error) {
		r := report.NewReport(id)
		r.Title = "From server"
		return r, nil
	}}
	s := New(local, remote, Options{})

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedRemote, result)
	assert.Equal(t, "rep_9", s.Report().ID)
	assert.Equal(t, "From server", s.Report().Title)
}

func TestLoadFreshWithoutAnything(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s, local := newTestSession(t, remote, Options{})

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedNew, result)
	assert.NotEmpty(t, s.Report().ID)
	id, ok, _ := local.Get(ctx, KeyReportID)
	assert.True(t, ok)
	assert.Equal(t, s.Report().ID, id)
}

func TestLoadIgnoresCorruptBackup(t *testing.T) {
	ctx := context.Background()
	local := localstore.NewMemory()
	require.NoError(t, local.Set(ctx, KeyDraft, "{not json"))
	s := New(local, nil, Options{})

	result, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedNew, result)
	assert.Equal(t, report.StatusDraft, s.Report().Status)
}

func TestSubmitLocksReport(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s, local := newTestSession(t, remote, Options{})
	fillRequired(ctx, s)

	artifact, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", artifact.FileName)
	assert.True(t, s.Report().IsSubmitted())
	assert.Equal(t, "Final report downloaded. Editing is now locked.", s.Status().Message)
	assert.Equal(t, "Submitted", storedDraft(t, local)["status"])

	s.Dispatch(ctx, SetField("title", "changed"))
	assert.Equal(t, "Density of Water", s.Report().Title)

	s.Save(ctx, TriggerManual)
	assert.Equal(t, int32(0), remote.saves.Load())

	_, err = s.Submit(ctx)
	assert.ErrorIs(t, err, submission.ErrConflict)
}

func TestSubmitValidates(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s, _ := newTestSession(t, remote, Options{})
	s.Dispatch(ctx, SetField("title", "Only a title"))

	_, err := s.Submit(ctx)
	var verr *submission.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Student Name is required.", verr.Message)
	assert.Equal(t, int32(0), remote.submits.Load())
	assert.False(t, s.Report().IsSubmitted())
}

func TestSubmitFallsBackToLocalRender(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{submitFn: func(context.Context, report.Report) (client.Artifact, error) {
		return client.Artifact{}, client.ErrRemoteUnsupported
	}}
	var rendered report.Report
	s, _ := newTestSession(t, remote, Options{RenderLocal: func(r report.Report) ([]byte, error) {
		rendered = r
		return []byte("%PDF-local"), nil
	}})
	fillRequired(ctx, s)

	artifact, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-local"), artifact.Data)
	assert.Equal(t, "density-of-water.pdf", artifact.FileName)
	assert.True(t, rendered.IsSubmitted())
	assert.True(t, s.Report().IsSubmitted())
	assert.False(t, s.Status().RemoteEnabled)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{submitFn: func(context.Context, report.Report) (client.Artifact, error) {
		return client.Artifact{}, errors.New("timeout")
	}}
	s, _ := newTestSession(t, remote, Options{})
	fillRequired(ctx, s)

	_, err := s.Submit(ctx)
	require.Error(t, err)
	assert.False(t, s.Report().IsSubmitted())

	s.Dispatch(ctx, SetField("title", "Still editable"))
	assert.Equal(t, "Still editable", s.Report().Title)
}

func TestSubmitConflict(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{submitFn: func(context.Context, report.Report) (client.Artifact, error) {
		return client.Artifact{}, fmt.Errorf("submit: %w", client.ErrConflict)
	}}
	s, _ := newTestSession(t, remote, Options{})
	fillRequired(ctx, s)

	_, err := s.Submit(ctx)
	assert.ErrorIs(t, err, submission.ErrConflict)
	assert.Equal(t, submission.ConflictMessage, s.Status().Message)
}

func TestSubmitServerValidation(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{submitFn: func(context.Context, report.Report) (client.Artifact, error) {
		return client.Artifact{}, &client.RemoteError{StatusCode: 400, Message: "Date is required."}
	}}
	s, _ := newTestSession(t, remote, Options{})
	fillRequired(ctx, s)

	_, err := s.Submit(ctx)
	var verr *submission.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Date is required.", verr.Message)
}

func TestResetStartsNewReport(t *testing.T) {
	ctx := context.Background()
	s, local := newTestSession(t, nil, Options{})
	fillRequired(ctx, s)
	oldID := s.Report().ID

	fresh := s.Reset(ctx)

	assert.NotEqual(t, oldID, fresh.ID)
	assert.Empty(t, fresh.Title)
	assert.Equal(t, "", storedDraft(t, local)["title"])
	id, _, _ := local.Get(ctx, KeyReportID)
	assert.Equal(t, fresh.ID, id)
}

func TestIdleTimerSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remote := &fakeRemote{}
	s, _ := newTestSession(t, remote, Options{IdleDelay: 20 * time.Millisecond, SaveInterval: time.Hour})
	s.Start(ctx)
	defer s.Stop()

	s.Dispatch(ctx, SetField("title", "a"))
	s.Dispatch(ctx, SetField("title", "ab"))

	assert.Eventually(t, func() bool { return remote.saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), remote.saves.Load())
}

func TestIntervalTimerSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remote := &fakeRemote{}
	s, _ := newTestSession(t, remote, Options{IdleDelay: time.Hour, SaveInterval: 10 * time.Millisecond})
	s.Start(ctx)

	assert.Eventually(t, func() bool { return remote.saves.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
}
