package search

import (
	"context"

	"go.uber.org/zap"

	"labreport/api/internal/report"
)

// RecordLoader supplies every stored report for a full reindex.
type RecordLoader interface {
	LoadAllRecords(ctx context.Context) ([]ReportRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to the
// store-backed searcher.
type Service struct {
	meili    *Meili
	fallback Searcher
	loader   RecordLoader
	logger   *zap.Logger
}

// NewService creates a search service. meili and loader may be nil.
func NewService(meili *Meili, fallback Searcher, loader RecordLoader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{meili: meili, fallback: fallback, loader: loader, logger: logger}
}

// Backend names the searcher currently answering queries.
func (s *Service) Backend() string {
	if s.meili != nil && s.meili.Healthy() {
		return "meilisearch"
	}
	return "fallback"
}

// Search tries Meilisearch if healthy, otherwise the fallback.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q = normalizeQuery(q)
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("fallback search failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexReport pushes a report to Meilisearch without waiting.
func (s *Service) IndexReport(r report.Report) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	rec := RecordFor(r)
	go func() {
		if err := s.meili.IndexReport(rec); err != nil {
			s.logger.Warn("index report", zap.String("report_id", rec.ID), zap.Error(err))
		}
	}()
}

// ReindexAll loads every stored report and pushes it to Meilisearch.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.loader == nil {
		return
	}
	records, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Error("reindex load failed", zap.Error(err))
		return
	}
	if err := s.meili.IndexReports(records); err != nil {
		s.logger.Error("reindex reports", zap.Error(err))
		return
	}
	s.logger.Info("reindexed reports", zap.Int("count", len(records)))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
