// Package render projects a report into an ordered, renderer-agnostic
// document and lays it out on a drawing canvas.
package render

import (
	"fmt"
	"strings"
	"time"

	"labreport/api/internal/report"
)

const (
	SampleCalculationsLabel = "Sample Calculations"
	EmptyDocumentText       = "No sections with content."
	teacherFallback         = "Not specified"
)

// Document is the printable form of a report. Every backend consumes this
// and nothing else.
type Document struct {
	Title    string
	Meta     []string
	Sections []Section
}

// Section is one numbered block.
type Section struct {
	Number             int
	Label              string
	Kind               report.SectionKind
	Text               string
	Notes              string
	SampleCalculations string
	Tables             []TableBlock
}

func (s Section) Heading() string {
	return fmt.Sprintf("%d. %s", s.Number, s.Label)
}

// TableBlock is a table ready to print: trimmed cells, blank rows dropped.
type TableBlock struct {
	Title   string
	Caption string
	Headers []string
	Rows    [][]string
}

// Project builds the printable document. now is used for the time spent line
// when the report does not carry a collected value.
func Project(r report.Report, now time.Time) Document {
	teacher := strings.TrimSpace(r.Teacher)
	if teacher == "" {
		teacher = teacherFallback
	}
	spent := r.TimeSpentSeconds
	if spent <= 0 {
		spent = report.TimeSpentSeconds(r.StartedAt, now)
	}

	doc := Document{
		Title: strings.TrimSpace(r.Title),
		Meta: []string{
			"Teacher: " + teacher,
			"Student: " + strings.TrimSpace(r.StudentName),
			"Date: " + strings.TrimSpace(r.Date),
			"Time Spent: " + report.FormatDuration(spent),
		},
	}

	for i, printable := range report.BuildPrintableSections(r) {
		section := Section{
			Number:             i + 1,
			Label:              printable.Label,
			Kind:               printable.Kind,
			Text:               printable.Text,
			Notes:              printable.Notes,
			SampleCalculations: printable.SampleCalculations,
		}
		for j, t := range printable.Tables {
			block := tableBlock(t)
			if len(printable.Tables) > 1 {
				block.Caption = fmt.Sprintf("Table %d", j+1)
			}
			section.Tables = append(section.Tables, block)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func tableBlock(t report.Table) TableBlock {
	block := TableBlock{Title: strings.TrimSpace(t.Title)}
	for _, h := range t.Headers {
		block.Headers = append(block.Headers, strings.TrimSpace(h))
	}
	for _, row := range t.Rows {
		cells := make([]string, len(block.Headers))
		filled := false
		for i := range cells {
			if i < len(row) {
				cells[i] = strings.TrimSpace(row[i])
			}
			if cells[i] != "" {
				filled = true
			}
		}
		if filled {
			block.Rows = append(block.Rows, cells)
		}
	}
	return block
}

// Lines is the reading-order text of a document, one entry per printed
// string. Two backends agree when the words they draw match these lines.
func Lines(doc Document) []string {
	lines := []string{doc.Title}
	lines = append(lines, doc.Meta...)
	if len(doc.Sections) == 0 {
		return append(lines, EmptyDocumentText)
	}
	for _, s := range doc.Sections {
		lines = append(lines, s.Heading())
		if s.Text != "" {
			lines = append(lines, s.Text)
		}
		if s.Notes != "" {
			lines = append(lines, s.Notes)
		}
		if s.SampleCalculations != "" {
			lines = append(lines, SampleCalculationsLabel, s.SampleCalculations)
		}
		for _, t := range s.Tables {
			if t.Title != "" {
				lines = append(lines, t.Title)
			}
			if t.Caption != "" {
				lines = append(lines, t.Caption)
			}
			lines = append(lines, t.Headers...)
			for _, row := range t.Rows {
				lines = append(lines, row...)
			}
		}
	}
	return lines
}
