package store

import (
	"context"
	"errors"
	"time"

	"labreport/api/internal/report"
)

var (
	ErrNotFound = errors.New("report not found")
	// ErrLocked means the stored row is Submitted and was left untouched.
	ErrLocked = errors.New("report is submitted and locked")
)

// Summary is the flattened row shape used for listings.
type Summary struct {
	ID           string        `json:"id"`
	TeacherEmail string        `json:"teacherEmail"`
	Title        string        `json:"title"`
	StudentName  string        `json:"studentName"`
	Date         string        `json:"date"`
	Status       report.Status `json:"status"`
	UpdatedAt    string        `json:"updatedAt"`
	SubmittedAt  string        `json:"submittedAt"`
}

type ListQuery struct {
	TeacherEmail string
	Status       report.Status
	Limit        int
	Offset       int
}

// Store persists reports keyed by id. UpsertReport never overwrites a
// Submitted row.
type Store interface {
	Kind() string
	Ping(ctx context.Context) error
	GetReport(ctx context.Context, id string) (report.Report, error)
	UpsertReport(ctx context.Context, r report.Report) error
	ListReports(ctx context.Context, q ListQuery) ([]Summary, int, error)
}

// Summarize flattens a report into its listing columns.
func Summarize(r report.Report) Summary {
	return Summary{
		ID:           r.ID,
		TeacherEmail: r.TeacherEmail,
		Title:        r.Title,
		StudentName:  r.StudentName,
		Date:         r.Date,
		Status:       r.Status,
		UpdatedAt:    r.UpdatedAt,
		SubmittedAt:  r.SubmittedAt,
	}
}

func normalizeListQuery(q ListQuery) ListQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
