package search

import (
	"context"
	"strings"

	"labreport/api/internal/report"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	StudentName  string        `json:"studentName"`
	TeacherEmail string        `json:"teacherEmail"`
	Date         string        `json:"date"`
	Status       report.Status `json:"status"`
	UpdatedAt    string        `json:"updatedAt"`
	Snippet      string        `json:"snippet,omitempty"`
}

// Query describes a search request. Empty Text lists the most recent reports.
type Query struct {
	Text         string
	TeacherEmail string
	Status       report.Status
	Limit        int
	Offset       int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// ReportRecord is the data we index for a report.
type ReportRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	StudentName  string `json:"studentName"`
	Teacher      string `json:"teacher"`
	TeacherEmail string `json:"teacherEmail"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updatedAt"`
	Body         string `json:"body"`
}

// RecordFor flattens a report into its index record. Body is the printable
// text of every section.
func RecordFor(r report.Report) ReportRecord {
	var body []string
	for _, section := range report.BuildPrintableSections(r) {
		for _, text := range []string{section.Text, section.Notes, section.SampleCalculations} {
			if strings.TrimSpace(text) != "" {
				body = append(body, text)
			}
		}
	}
	return ReportRecord{
		ID:           r.ID,
		Title:        r.Title,
		StudentName:  r.StudentName,
		Teacher:      r.Teacher,
		TeacherEmail: strings.ToLower(strings.TrimSpace(r.TeacherEmail)),
		Date:         r.Date,
		Status:       string(r.Status),
		UpdatedAt:    r.UpdatedAt,
		Body:         strings.Join(body, "\n"),
	}
}

func normalizeQuery(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	q.TeacherEmail = strings.ToLower(strings.TrimSpace(q.TeacherEmail))
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
