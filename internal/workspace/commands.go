package workspace

import (
	"strings"
	"time"

	"labreport/api/internal/report"
)

// Intent is a side effect the caller must carry out after a command.
type Intent int

const (
	// IntentPersistLocal writes the local backup now.
	IntentPersistLocal Intent = iota + 1
	// IntentScheduleSave (re)starts the idle save timer.
	IntentScheduleSave
)

// Command is one user edit.
type Command interface {
	apply(r *report.Report) bool
}

// Apply runs cmd against a copy of r. A Submitted report never changes and
// yields no intents; neither does an edit that changes nothing. The first
// non-blank student name starts the clock.
func Apply(r report.Report, cmd Command, now time.Time) (report.Report, []Intent) {
	if r.IsSubmitted() {
		return r, nil
	}
	next := r.Clone()
	if !cmd.apply(&next) {
		return r, nil
	}
	if next.StartedAt == 0 && strings.TrimSpace(next.StudentName) != "" {
		next.StartedAt = now.UnixMilli()
	}
	return next, []Intent{IntentPersistLocal, IntentScheduleSave}
}

type setField struct {
	field, value string
}

// SetField edits one of the scalar fields: teacher, teacherEmail, title,
// studentName or date.
func SetField(field, value string) Command {
	return setField{field: field, value: value}
}

func (c setField) apply(r *report.Report) bool {
	var target *string
	switch c.field {
	case "teacher":
		target = &r.Teacher
	case "teacherEmail":
		target = &r.TeacherEmail
	case "title":
		target = &r.Title
	case "studentName":
		target = &r.StudentName
	case "date":
		target = &r.Date
	default:
		return false
	}
	if *target == c.value {
		return false
	}
	*target = c.value
	return true
}

type setSection struct {
	key, value string
}

// SetSection edits a free-text section, notes or sample calculations field.
func SetSection(key, value string) Command {
	return setSection{key: key, value: value}
}

func (c setSection) apply(r *report.Report) bool {
	known := false
	for _, key := range report.SectionKeys() {
		if key == c.key {
			known = true
			break
		}
	}
	if !known || r.Sections[c.key] == c.value {
		return false
	}
	r.Sections[c.key] = c.value
	return true
}

type tableEdit struct {
	kind  string
	index int
	edit  func(report.Table, string) report.Table
}

func (c tableEdit) apply(r *report.Report) bool {
	tables := r.Tables[c.kind]
	if c.index < 0 || c.index >= len(tables) {
		return false
	}
	tables[c.index] = c.edit(tables[c.index], c.kind)
	return true
}

func AddRow(kind string, table int) Command {
	return tableEdit{kind, table, report.AddRow}
}

func AddTrialRow(kind string, table int) Command {
	return tableEdit{kind, table, report.AddTrialRow}
}

func AddColumn(kind string, table int) Command {
	return tableEdit{kind, table, report.AddColumn}
}

func DeleteLastColumn(kind string, table int) Command {
	return tableEdit{kind, table, report.DeleteLastColumn}
}

func DeleteColumn(kind string, table, col int) Command {
	return tableEdit{kind, table, func(t report.Table, k string) report.Table {
		return report.DeleteColumn(t, k, col)
	}}
}

func DeleteRow(kind string, table, row int) Command {
	return tableEdit{kind, table, func(t report.Table, k string) report.Table {
		return report.DeleteRow(t, k, row)
	}}
}

func SetTableTitle(kind string, table int, title string) Command {
	return tableEdit{kind, table, func(t report.Table, _ string) report.Table {
		return report.SetTitle(t, title)
	}}
}

func SetHeader(kind string, table, col int, value string) Command {
	return tableEdit{kind, table, func(t report.Table, _ string) report.Table {
		return report.SetHeader(t, col, value)
	}}
}

func SetCell(kind string, table, row, col int, value string) Command {
	return tableEdit{kind, table, func(t report.Table, _ string) report.Table {
		return report.SetCell(t, row, col, value)
	}}
}

type tableListEdit struct {
	kind string
	edit func([]report.Table) []report.Table
}

func (c tableListEdit) apply(r *report.Report) bool {
	if _, ok := r.Tables[c.kind]; !ok {
		return false
	}
	r.Tables[c.kind] = c.edit(r.Tables[c.kind])
	return true
}

func AddTable(kind string) Command {
	return tableListEdit{kind, func(list []report.Table) []report.Table {
		return report.AddTable(list, kind)
	}}
}

func RemoveTable(kind string, table int) Command {
	return tableListEdit{kind, func(list []report.Table) []report.Table {
		return report.RemoveTable(list, kind, table)
	}}
}

type replaceContent struct {
	source report.Report
}

// ReplaceContent loads every editable field from source (an example report
// or an imported file) while keeping the current id, status and clock.
func ReplaceContent(source report.Report) Command {
	return replaceContent{source: source}
}

func (c replaceContent) apply(r *report.Report) bool {
	src := report.NormalizeReport(c.source)
	src.ID = r.ID
	src.Status = r.Status
	src.StartedAt = r.StartedAt
	src.TimeSpentSeconds = r.TimeSpentSeconds
	src.UpdatedAt = r.UpdatedAt
	src.SubmittedAt = r.SubmittedAt
	*r = src
	return true
}
