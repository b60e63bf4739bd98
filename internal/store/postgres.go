package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"labreport/api/internal/report"
)

// lockedState is the SQLSTATE raised by the lab_reports update trigger.
const lockedState = "55000"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Kind() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectReport = `
	SELECT id, teacher_email, title, student_name, experiment_date, status, payload, updated_at, submitted_at
	FROM lab_reports
	WHERE id = $1
`

func (s *PostgresStore) GetReport(ctx context.Context, id string) (report.Report, error) {
	var (
		row         storedRow
		payload     []byte
		updatedAt   time.Time
		submittedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, selectReport, strings.TrimSpace(id)).Scan(
		&row.ID, &row.TeacherEmail, &row.Title, &row.StudentName, &row.Date, &row.Status,
		&payload, &updatedAt, &submittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, ErrNotFound
	}
	if err != nil {
		return report.Report{}, fmt.Errorf("get report: %w", err)
	}
	row.UpdatedAt = formatTimestamp(updatedAt)
	if submittedAt.Valid {
		row.SubmittedAt = formatTimestamp(submittedAt.Time)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &row.Payload); err != nil {
			return report.Report{}, fmt.Errorf("decode report payload: %w", err)
		}
	}
	return row.toReport(), nil
}

const upsertReport = `
	INSERT INTO lab_reports (id, teacher_email, title, student_name, experiment_date, status, payload, updated_at, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		teacher_email = EXCLUDED.teacher_email,
		title = EXCLUDED.title,
		student_name = EXCLUDED.student_name,
		experiment_date = EXCLUDED.experiment_date,
		status = EXCLUDED.status,
		payload = EXCLUDED.payload,
		updated_at = EXCLUDED.updated_at,
		submitted_at = EXCLUDED.submitted_at
	WHERE lab_reports.status <> 'Submitted'
`

// UpsertReport writes the row derived from r. Zero affected rows means the
// existing row is Submitted.
func (s *PostgresStore) UpsertReport(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report payload: %w", err)
	}
	updatedAt, ok := parseTimestamp(r.UpdatedAt)
	if !ok {
		updatedAt = time.Now().UTC()
	}
	var submittedAt any
	if t, ok := parseTimestamp(r.SubmittedAt); ok {
		submittedAt = t
	}

	res, err := s.db.ExecContext(ctx, upsertReport,
		r.ID, r.TeacherEmail, r.Title, r.StudentName, r.Date, string(r.Status),
		payload, updatedAt, submittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.SQLState() == lockedState {
			return ErrLocked
		}
		return fmt.Errorf("upsert report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert report rows affected: %w", err)
	}
	if affected == 0 {
		return ErrLocked
	}
	return nil
}

func (s *PostgresStore) ListReports(ctx context.Context, q ListQuery) ([]Summary, int, error) {
	q = normalizeListQuery(q)

	var (
		where []string
		args  []any
	)
	if email := strings.TrimSpace(q.TeacherEmail); email != "" {
		args = append(args, email)
		where = append(where, fmt.Sprintf("LOWER(teacher_email) = LOWER($%d)", len(args)))
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
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lab_reports`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`
		SELECT id, teacher_email, title, student_name, experiment_date, status, updated_at, submitted_at
		FROM lab_reports%s
		ORDER BY updated_at DESC, id ASC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, q.Limit)
	for rows.Next() {
		var (
			summary     Summary
			status      string
			updatedAt   time.Time
			submittedAt sql.NullTime
		)
		if err := rows.Scan(&summary.ID, &summary.TeacherEmail, &summary.Title, &summary.StudentName,
			&summary.Date, &status, &updatedAt, &submittedAt); err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		summary.Status = report.ParseStatus(status)
		summary.UpdatedAt = formatTimestamp(updatedAt)
		if submittedAt.Valid {
			summary.SubmittedAt = formatTimestamp(submittedAt.Time)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reports: %w", err)
	}
	return out, total, nil
}

// storedRow is a lab_reports row before it is merged back into a report.
type storedRow struct {
	ID           string
	TeacherEmail string
	Title        string
	StudentName  string
	Date         string
	Status       string
	UpdatedAt    string
	SubmittedAt  string
	Payload      map[string]any
}

// toReport merges the flattened columns over the JSON payload. A non-empty
// column wins over the payload field.
func (row storedRow) toReport() report.Report {
	merged := make(map[string]any, len(row.Payload)+8)
	for k, v := range row.Payload {
		merged[k] = v
	}
	overlay := map[string]string{
		"id":           row.ID,
		"teacherEmail": row.TeacherEmail,
		"title":        row.Title,
		"studentName":  row.StudentName,
		"date":         row.Date,
		"status":       row.Status,
		"updatedAt":    row.UpdatedAt,
		"submittedAt":  row.SubmittedAt,
	}
	for k, v := range overlay {
		if v != "" {
			merged[k] = v
		}
	}

	r := report.NormalizeReport(merged)
	if row.Status != "" {
		r.Status = report.ParseStatus(row.Status)
	}
	r.UpdatedAt = firstNonEmpty(row.UpdatedAt, stringField(row.Payload, "updatedAt"))
	r.SubmittedAt = firstNonEmpty(row.SubmittedAt, stringField(row.Payload, "submittedAt"))
	return r
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
