package report

import (
	"fmt"
	"strings"
)

// DefaultHeaders returns width header labels for kind. Structured kinds get
// "Trial" followed by template values and blanks; generic kinds get
// "Column N".
func DefaultHeaders(kind string, width int) []string {
	if width < 1 {
		width = 1
	}
	template := TemplateHeaders(kind)
	headers := make([]string, width)
	for i := range headers {
		switch {
		case len(template) == 0:
			headers[i] = genericHeader(i)
		case i == 0:
			headers[i] = trialHeader
		case i < len(template):
			headers[i] = template[i]
		}
	}
	return headers
}

// DefaultTable returns the table a fresh report starts with.
func DefaultTable(kind string) Table {
	headers := DefaultHeaders(kind, MinColumns(kind))
	return Table{Headers: headers, Rows: initialRows(kind, len(headers))}
}

// NormalizeTable coerces an arbitrary decoded value into a valid table of
// kind. It never fails: anything unusable yields the default table.
func NormalizeTable(raw any, kind string) Table {
	fields, ok := asObject(raw)
	if !ok {
		return DefaultTable(kind)
	}

	title := strings.TrimSpace(stringify(fields["title"]))

	var headers []string
	if items, ok := asSlice(fields["headers"]); ok {
		for _, item := range items {
			if len(headers) == MaxHeaders {
				break
			}
			headers = append(headers, strings.TrimSpace(stringify(item)))
		}
	}

	var rows [][]string
	if items, ok := asSlice(fields["rows"]); ok {
		for _, item := range items {
			if len(rows) == MaxRows {
				break
			}
			cells, ok := asSlice(item)
			if !ok {
				continue
			}
			row := make([]string, len(cells))
			for i, cell := range cells {
				row[i] = stringify(cell)
			}
			rows = append(rows, row)
		}
	}

	width := max(len(headers), MinColumns(kind))
	for _, row := range rows {
		width = max(width, len(row))
	}
	width = min(width, MaxHeaders)

	defaults := DefaultHeaders(kind, width)
	if len(headers) == 0 {
		headers = defaults
	} else {
		for len(headers) < width {
			headers = append(headers, defaults[len(headers)])
		}
	}

	if IsStructured(kind) {
		headers[0] = trialHeader
		for i := 1; i < len(headers); i++ {
			if isLegacyHeader(headers[i], i) {
				headers[i] = ""
			}
		}
	}

	for i, row := range rows {
		rows[i] = fitRow(row, len(headers))
	}
	if len(rows) == 0 {
		rows = initialRows(kind, len(headers))
	}

	return Table{Title: title, Headers: headers, Rows: rows}
}

// NormalizeTableList coerces raw into a non-empty list of tables of kind. A
// single table object is wrapped.
func NormalizeTableList(raw any, kind string) []Table {
	if items, ok := asSlice(raw); ok {
		tables := make([]Table, 0, len(items))
		for _, item := range items {
			tables = append(tables, NormalizeTable(item, kind))
		}
		if len(tables) == 0 {
			return []Table{DefaultTable(kind)}
		}
		return tables
	}
	if _, ok := asObject(raw); ok {
		return []Table{NormalizeTable(raw, kind)}
	}
	return []Table{DefaultTable(kind)}
}

// TableHasContent reports whether the table carries anything the student
// typed: a title, a non-blank cell, or a header that is not a default label.
func TableHasContent(t Table, kind string) bool {
	if strings.TrimSpace(t.Title) != "" {
		return true
	}
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return true
			}
		}
	}
	defaults := DefaultHeaders(kind, len(t.Headers))
	for i, header := range t.Headers {
		value := strings.TrimSpace(header)
		if value == "" {
			continue
		}
		if value != defaults[i] && value != genericHeader(i) {
			return true
		}
	}
	return false
}

func genericHeader(index int) string {
	return fmt.Sprintf("Column %d", index+1)
}

func initialRows(kind string, width int) [][]string {
	if IsStructured(kind) {
		rows := make([][]string, 3)
		for i := range rows {
			rows[i] = blankRow(width, fmt.Sprintf("Trial %d", i+1))
		}
		return rows
	}
	return [][]string{blankRow(width, "")}
}

func blankRow(width int, first string) []string {
	row := make([]string, max(width, 1))
	row[0] = first
	return row
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
