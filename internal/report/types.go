// Package report holds the lab report document model: table normalization,
// full-report coercion and the printable-section projection shared by every
// renderer.
package report

// Status is the lifecycle state of a report. Submitted is terminal.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
)

// ParseStatus maps anything other than the exact "Submitted" literal to Draft.
func ParseStatus(value any) Status {
	if s, ok := value.(string); ok && s == string(StatusSubmitted) {
		return StatusSubmitted
	}
	if s, ok := value.(Status); ok && s == StatusSubmitted {
		return StatusSubmitted
	}
	return StatusDraft
}

// Table is one data table. After normalization Headers and every row have the
// same non-zero length and there is at least one row.
type Table struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{Title: t.Title, Headers: append([]string(nil), t.Headers...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Report is the root lab report entity.
type Report struct {
	ID               string             `json:"id"`
	Status           Status             `json:"status"`
	Teacher          string             `json:"teacher"`
	TeacherEmail     string             `json:"teacherEmail"`
	Title            string             `json:"title"`
	StudentName      string             `json:"studentName"`
	Date             string             `json:"date"`
	StartedAt        int64              `json:"startedAt"`
	TimeSpentSeconds int64              `json:"timeSpentSeconds"`
	Sections         map[string]string  `json:"sections"`
	Tables           map[string][]Table `json:"tables"`
	UpdatedAt        string             `json:"updatedAt"`
	SubmittedAt      string             `json:"submittedAt"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Report) Clone() Report {
	out := r
	out.Sections = make(map[string]string, len(r.Sections))
	for k, v := range r.Sections {
		out.Sections[k] = v
	}
	out.Tables = make(map[string][]Table, len(r.Tables))
	for kind, list := range r.Tables {
		copied := make([]Table, len(list))
		for i, t := range list {
			copied[i] = t.Clone()
		}
		out.Tables[kind] = copied
	}
	return out
}

// IsSubmitted reports whether the report reached the terminal state.
func (r Report) IsSubmitted() bool {
	return r.Status == StatusSubmitted
}
