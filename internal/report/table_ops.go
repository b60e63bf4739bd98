package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Table edits. Every operation returns a new table and leaves its input
// untouched; results stay rectangular and never lose their last row or
// column.

var trialNumberPattern = regexp.MustCompile(`\d+`)

func isTrialHeader(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "trial")
}

// NextTrialNumber is one past the highest number found in the first column.
func NextTrialNumber(rows [][]string) int {
	highest := 0
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		match := trialNumberPattern.FindString(row[0])
		if match == "" {
			continue
		}
		if n, err := strconv.Atoi(match); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func nextColumnHeader(headers []string, kind string) string {
	next := len(headers)
	template := TemplateHeaders(kind)
	if next < len(template) && template[next] != "" {
		return template[next]
	}
	if IsStructured(kind) {
		return ""
	}
	return genericHeader(next)
}

func trialLabel(t Table, kind string, number int) string {
	if IsStructured(kind) && len(t.Headers) > 0 && isTrialHeader(t.Headers[0]) {
		return fmt.Sprintf("Trial %d", number)
	}
	return ""
}

func singleColumn(t Table, kind string) Table {
	out := Table{Title: t.Title, Headers: []string{genericHeader(0)}}
	first := ""
	if IsStructured(kind) {
		out.Headers[0] = trialHeader
		first = "Trial 1"
	}
	out.Rows = make([][]string, max(len(t.Rows), 1))
	for i := range out.Rows {
		out.Rows[i] = []string{first}
	}
	return out
}

// AddRow appends a blank row, labelled with the next trial number when the
// table is structured and its first column is a trial column.
func AddRow(t Table, kind string) Table {
	out := t.Clone()
	if len(out.Rows) >= MaxRows {
		return out
	}
	out.Rows = append(out.Rows, blankRow(len(out.Headers), trialLabel(out, kind, NextTrialNumber(out.Rows))))
	return out
}

// AddTrialRow appends a row labelled "Trial N" whenever the first header is a
// trial column, whatever the kind.
func AddTrialRow(t Table, kind string) Table {
	out := t.Clone()
	if len(out.Rows) >= MaxRows {
		return out
	}
	label := ""
	if len(out.Headers) > 0 && isTrialHeader(out.Headers[0]) {
		label = fmt.Sprintf("Trial %d", NextTrialNumber(out.Rows))
	}
	out.Rows = append(out.Rows, blankRow(len(out.Headers), label))
	return out
}

// AddColumn appends a column. Structured kinds use the template label or a
// blank header, generic kinds "Column N".
func AddColumn(t Table, kind string) Table {
	out := t.Clone()
	if len(out.Headers) >= MaxHeaders {
		return out
	}
	out.Headers = append(out.Headers, nextColumnHeader(out.Headers, kind))
	for i := range out.Rows {
		out.Rows[i] = append(out.Rows[i], "")
	}
	return out
}

// DeleteLastColumn drops the rightmost column. Removing the only column
// resets the table to one fresh column.
func DeleteLastColumn(t Table, kind string) Table {
	if len(t.Headers) <= 1 {
		return singleColumn(t, kind)
	}
	out := t.Clone()
	out.Headers = out.Headers[:len(out.Headers)-1]
	for i, row := range out.Rows {
		out.Rows[i] = fitRow(row, len(out.Headers))
	}
	return out
}

// DeleteColumn removes column index. Out of range indexes are ignored.
func DeleteColumn(t Table, kind string, index int) Table {
	if index < 0 || index >= len(t.Headers) {
		return t.Clone()
	}
	if len(t.Headers) <= 1 {
		return singleColumn(t, kind)
	}
	out := t.Clone()
	out.Headers = append(out.Headers[:index], out.Headers[index+1:]...)
	for i, row := range out.Rows {
		if index < len(row) {
			row = append(row[:index], row[index+1:]...)
		}
		out.Rows[i] = fitRow(row, len(out.Headers))
	}
	return out
}

// DeleteRow removes row index. Removing the only row leaves one blank row,
// relabelled "Trial 1" on structured trial tables.
func DeleteRow(t Table, kind string, index int) Table {
	out := t.Clone()
	if index < 0 || index >= len(out.Rows) {
		return out
	}
	if len(out.Rows) == 1 {
		out.Rows[0] = blankRow(len(out.Headers), trialLabel(out, kind, 1))
		return out
	}
	out.Rows = append(out.Rows[:index], out.Rows[index+1:]...)
	return out
}

func SetTitle(t Table, title string) Table {
	out := t.Clone()
	out.Title = title
	return out
}

func SetHeader(t Table, index int, value string) Table {
	out := t.Clone()
	if index >= 0 && index < len(out.Headers) {
		out.Headers[index] = value
	}
	return out
}

func SetCell(t Table, row, col int, value string) Table {
	out := t.Clone()
	if row >= 0 && row < len(out.Rows) && col >= 0 && col < len(out.Rows[row]) {
		out.Rows[row][col] = value
	}
	return out
}

// AddTable appends a default table to the list.
func AddTable(tables []Table, kind string) []Table {
	out := cloneTables(tables)
	return append(out, DefaultTable(kind))
}

// RemoveTable drops table index. The list never becomes empty: removing the
// last table replaces it with a default one.
func RemoveTable(tables []Table, kind string, index int) []Table {
	out := cloneTables(tables)
	if index < 0 || index >= len(out) {
		return out
	}
	if len(out) == 1 {
		out[0] = DefaultTable(kind)
		return out
	}
	return append(out[:index], out[index+1:]...)
}

func cloneTables(tables []Table) []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}
