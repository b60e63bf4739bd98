package report

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"labreport/api/internal/util"
)

// NewReport builds a blank Draft. An empty id gets a fresh one.
func NewReport(id string) Report {
	if strings.TrimSpace(id) == "" {
		id = util.NewID("")
	}
	r := Report{
		ID:       id,
		Status:   StatusDraft,
		Sections: make(map[string]string),
		Tables:   make(map[string][]Table),
	}
	for _, key := range SectionKeys() {
		r.Sections[key] = ""
	}
	for _, kind := range TableKinds() {
		r.Tables[kind] = []Table{DefaultTable(kind)}
	}
	return r
}

// NormalizeReport coerces any decoded value into a complete report. Missing
// or mistyped fields fall back to defaults; unknown section keys and table
// kinds are dropped. A missing id is generated.
func NormalizeReport(raw any) Report {
	fields, ok := asObject(raw)
	if !ok {
		fields = map[string]any{}
	}

	r := NewReport(cleanString(fields["id"]))
	r.Status = ParseStatus(fields["status"])
	r.Teacher = cleanString(fields["teacher"])
	r.TeacherEmail = cleanString(fields["teacherEmail"])
	r.Title = cleanString(fields["title"])
	r.StudentName = cleanString(fields["studentName"])
	r.Date = cleanString(fields["date"])
	r.UpdatedAt = cleanString(fields["updatedAt"])
	r.SubmittedAt = cleanString(fields["submittedAt"])

	if n, ok := toNumber(fields["startedAt"]); ok && n > 0 {
		r.StartedAt = int64(n)
	}
	if n, ok := toNumber(fields["timeSpentSeconds"]); ok && n > 0 {
		r.TimeSpentSeconds = int64(math.Round(n))
	}

	sections, _ := asObject(fields["sections"])
	for _, key := range SectionKeys() {
		r.Sections[key] = cleanString(sections[key])
	}

	tables, _ := asObject(fields["tables"])
	for _, kind := range TableKinds() {
		r.Tables[kind] = NormalizeTableList(tables[kind], kind)
	}
	return r
}

// ParseReport decodes JSON and normalizes it. Malformed input yields a fresh
// draft.
func ParseReport(data []byte) Report {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewReport("")
	}
	return NormalizeReport(raw)
}

// ValidateForSubmit returns the message for the first missing required
// field, or "" when the report may be submitted.
func ValidateForSubmit(r Report) string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "Title of Experiment is required."
	case strings.TrimSpace(r.StudentName) == "":
		return "Student Name is required."
	case strings.TrimSpace(r.Date) == "":
		return "Date is required."
	}
	return ""
}

// TimeSpentSeconds is the whole seconds elapsed since startedAt (epoch ms).
// It is zero until the clock has started.
func TimeSpentSeconds(startedAt int64, now time.Time) int64 {
	if startedAt <= 0 {
		return 0
	}
	elapsed := now.UnixMilli() - startedAt
	if elapsed <= 0 {
		return 0
	}
	return elapsed / 1000
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 3s" or "3s".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

var (
	unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9\-_ ]+`)
	fileWhitespace  = regexp.MustCompile(`\s+`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

const defaultFileName = "lab-report"

// SafeFileName derives a download name (without extension) from a title.
func SafeFileName(title string) string {
	name := unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "")
	name = fileWhitespace.ReplaceAllString(name, "-")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.ToLower(strings.Trim(name, "-"))
	if name == "" {
		return defaultFileName
	}
	return name
}
