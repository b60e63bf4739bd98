package submission

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/api/internal/report"
)

func completeReport() report.Report {
	r := report.NewReport("sub-1")
	r.Title = "Density of H2O!! (Trial #1)"
	r.StudentName = "Priya"
	r.Date = "2026-02-10"
	return r
}

func fakePDF(report.Report) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

func TestSubmitMissingDateStaysDraft(t *testing.T) {
	r := completeReport()
	r.Date = ""
	rendered := false

	_, err := Submit(r, time.Now(), func(report.Report) ([]byte, error) {
		rendered = true
		return nil, nil
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Date is required.", validation.Message)
	assert.Equal(t, report.StatusDraft, r.Status)
	assert.False(t, rendered)
}

func TestSubmitSuccess(t *testing.T) {
	r := completeReport()
	now := time.Date(2026, 2, 10, 15, 4, 5, 0, time.UTC)
	var seen report.Status

	res, err := Submit(r, now, func(final report.Report) ([]byte, error) {
		seen = final.Status
		return fakePDF(final)
	})
	require.NoError(t, err)
	assert.Equal(t, report.StatusSubmitted, seen)
	assert.Equal(t, report.StatusSubmitted, res.Report.Status)
	assert.Equal(t, "2026-02-10T15:04:05Z", res.Report.SubmittedAt)
	assert.Equal(t, res.Report.SubmittedAt, res.Report.UpdatedAt)
	assert.Equal(t, "density-of-h2o-trial-1.pdf", res.FileName)
	assert.Equal(t, []byte("%PDF-1.4"), res.Artifact)
	assert.Equal(t, report.StatusDraft, r.Status)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	res, err := Submit(completeReport(), time.Now(), fakePDF)
	require.NoError(t, err)

	_, err = Submit(res.Report, time.Now(), fakePDF)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubmitRenderFailureKeepsDraft(t *testing.T) {
	r := completeReport()
	boom := errors.New("chrome crashed")

	_, err := Submit(r, time.Now(), func(report.Report) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, ErrRender)
	assert.ErrorIs(t, err, boom)
	assert.True(t, CanEdit(r.Status))

	_, err = Submit(r, time.Now(), func(report.Report) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrRender)
}

func TestCanEditAndSave(t *testing.T) {
	assert.True(t, CanEdit(report.StatusDraft))
	assert.True(t, CanSave(report.StatusDraft))
	assert.False(t, CanEdit(report.StatusSubmitted))
	assert.False(t, CanSave(report.StatusSubmitted))
}
