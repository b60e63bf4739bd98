package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"labreport/api/internal/render"
)

const summarySheet = "Report"

// exportXLSX writes a summary sheet with the report header followed by one
// sheet per printed table.
func exportXLSX(doc render.Document, baseName string) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DCE8E1"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	f.SetCellValue(summarySheet, "A1", doc.Title)
	f.SetCellStyle(summarySheet, "A1", "A1", headerStyle)
	row := 2
	for _, meta := range doc.Meta {
		f.SetCellValue(summarySheet, cell("A", row), meta)
		row++
	}
	row++
	for _, s := range doc.Sections {
		f.SetCellValue(summarySheet, cell("A", row), s.Heading())
		f.SetCellStyle(summarySheet, cell("A", row), cell("A", row), headerStyle)
		row++
		for _, text := range []string{s.Text, s.Notes, s.SampleCalculations} {
			if text == "" {
				continue
			}
			f.SetCellValue(summarySheet, cell("A", row), text)
			row++
		}
	}
	f.SetColWidth(summarySheet, "A", "A", 100)

	for _, s := range doc.Sections {
		for i, t := range s.Tables {
			name := fmt.Sprintf("%s %d", s.Label, i+1)
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("create sheet %q: %w", name, err)
			}
			if err := writeTableSheet(f, name, t, headerStyle); err != nil {
				return nil, err
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return &Result{Data: buf.Bytes(), Filename: baseName + ".xlsx", MimeType: mimeXLSX}, nil
}

func writeTableSheet(f *excelize.File, sheet string, t render.TableBlock, headerStyle int) error {
	row := 1
	if t.Title != "" {
		f.SetCellValue(sheet, "A1", t.Title)
		f.SetCellStyle(sheet, "A1", "A1", headerStyle)
		row = 3
	}

	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, cell("A", row), &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	last := colName(max(len(t.Headers), 1) - 1)
	f.SetCellStyle(sheet, cell("A", row), cell(last, row), headerStyle)
	f.SetColWidth(sheet, "A", last, 18)

	for _, r := range t.Rows {
		row++
		values := make([]any, len(r))
		for i, v := range r {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell("A", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
