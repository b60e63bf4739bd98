package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"labreport/api/internal/report"
)

// PgFTS implements Searcher over the generated fts column of lab_reports.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	q = normalizeQuery(q)

	var (
		where []string
		args  []any
		rank  = "0"
	)
	snippet := "''::text"
	if q.Text != "" {
		args = append(args, q.Text)
		tsQuery := "plainto_tsquery('english', $1)"
		where = append(where, "fts @@ "+tsQuery)
		rank = "ts_rank(fts, " + tsQuery + ")"
		snippet = "ts_headline('english', coalesce(payload->'sections'->>'researchQuestion', ''), " + tsQuery + ", 'MaxFragments=1,MaxWords=30')"
	}
	if q.TeacherEmail != "" {
		args = append(args, q.TeacherEmail)
		where = append(where, fmt.Sprintf("LOWER(teacher_email) = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM lab_reports"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, title, student_name, teacher_email, experiment_date, status,
			to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"') AS updated_at,
			%s AS snippet
		FROM lab_reports%s
		ORDER BY %s DESC, updated_at DESC
		LIMIT %d OFFSET %d`, snippet, clause, rank, q.Limit, q.Offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r      Result
			status string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.StudentName, &r.TeacherEmail, &r.Date, &status, &r.UpdatedAt, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Status = report.ParseStatus(status)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every report for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ReportRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM lab_reports`)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	defer rows.Close()

	records := make([]ReportRecord, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, RecordFor(report.ParseReport(payload)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return records, nil
}
