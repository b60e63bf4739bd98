package search

import (
	"context"
	"strings"

	"labreport/api/internal/store"
)

// Lister is the part of store.Store the scan searcher needs.
type Lister interface {
	ListReports(ctx context.Context, q store.ListQuery) ([]store.Summary, int, error)
}

// Scan implements Searcher by filtering store listings in process. It backs
// search when neither Meilisearch nor Postgres is available.
type Scan struct {
	lister Lister
}

func NewScan(lister Lister) *Scan {
	return &Scan{lister: lister}
}

func (s *Scan) Healthy() bool { return true }

func (s *Scan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	q = normalizeQuery(q)
	needle := strings.ToLower(q.Text)

	var matched []Result
	for offset := 0; ; offset += 100 {
		page, total, err := s.lister.ListReports(ctx, store.ListQuery{
			TeacherEmail: q.TeacherEmail,
			Status:       q.Status,
			Limit:        100,
			Offset:       offset,
		})
		if err != nil {
			return nil, 0, err
		}
		for _, summary := range page {
			if needle != "" && !summaryContains(summary, needle) {
				continue
			}
			matched = append(matched, Result{
				ID:           summary.ID,
				Title:        summary.Title,
				StudentName:  summary.StudentName,
				TeacherEmail: summary.TeacherEmail,
				Date:         summary.Date,
				Status:       summary.Status,
				UpdatedAt:    summary.UpdatedAt,
			})
		}
		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}

	total := len(matched)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func summaryContains(s store.Summary, needle string) bool {
	for _, field := range []string{s.Title, s.StudentName, s.TeacherEmail} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
