package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"labreport/api/internal/report"
)

// MemoryStore keeps reports in process. It is used when no database URL is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]report.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]report.Report)}
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) GetReport(_ context.Context, id string) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[strings.TrimSpace(id)]
	if !ok {
		return report.Report{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) UpsertReport(_ context.Context, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.reports[r.ID]; ok && existing.IsSubmitted() {
		return ErrLocked
	}
	s.reports[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) ListReports(_ context.Context, q ListQuery) ([]Summary, int, error) {
	q = normalizeListQuery(q)
	email := strings.ToLower(strings.TrimSpace(q.TeacherEmail))

	s.mu.RLock()
	matched := make([]Summary, 0, len(s.reports))
	for _, r := range s.reports {
		if email != "" && strings.ToLower(r.TeacherEmail) != email {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		matched = append(matched, Summarize(r))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UpdatedAt != matched[j].UpdatedAt {
			return matched[i].UpdatedAt > matched[j].UpdatedAt
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if q.Offset >= total {
		return []Summary{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}
