package render

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport/api/internal/report"
)

var showText = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
var pdfEscape = regexp.MustCompile(`\\(.)`)

// drawnWords pulls every string shown with Tj out of an uncompressed PDF.
func drawnWords(pdf []byte) []string {
	var words []string
	for _, m := range showText.FindAllSubmatch(pdf, -1) {
		text := pdfEscape.ReplaceAllString(string(m[1]), "$1")
		words = append(words, strings.Fields(text)...)
	}
	return words
}

func expectedWords(doc Document) []string {
	return strings.Fields(strings.Join(Lines(doc), " "))
}

func sampleReport() report.Report {
	r := report.NewReport("render-1")
	r.Title = "Density of an Unknown Liquid"
	r.Teacher = ""
	r.StudentName = "Priya Natarajan"
	r.Date = "2026-02-10"
	r.TimeSpentSeconds = 3723
	r.Sections["researchQuestion"] = "How dense is the liquid?"
	r.Sections["processedDataNotes"] = "Values agree within uncertainty."
	r.Sections["processedDataSampleCalculations"] = "rho = 19.82 / 20.00 = 0.991"
	r.Sections["references"] = "Harris (2020).\nBrown (2018)."

	raw := report.DefaultTable(report.KindRawData)
	raw = report.SetTitle(raw, "Raw masses")
	raw = report.SetHeader(raw, 1, "Mass (g)")
	raw = report.SetCell(raw, 0, 1, "19.76")
	r.Tables[report.KindRawData] = []report.Table{raw}

	first := report.SetCell(report.DefaultTable(report.KindProcessedData), 1, 2, "0.991")
	second := report.SetTitle(report.DefaultTable(report.KindProcessedData), "Summary")
	r.Tables[report.KindProcessedData] = []report.Table{first, report.DefaultTable(report.KindProcessedData), second}
	return r
}

func TestProjectHeaderAndNumbering(t *testing.T) {
	doc := Project(sampleReport(), time.Now())

	assert.Equal(t, "Density of an Unknown Liquid", doc.Title)
	assert.Equal(t, []string{
		"Teacher: Not specified",
		"Student: Priya Natarajan",
		"Date: 2026-02-10",
		"Time Spent: 1h 2m 3s",
	}, doc.Meta)

	require.Len(t, doc.Sections, 4)
	assert.Equal(t, "1. Research Question", doc.Sections[0].Heading())
	assert.Equal(t, "2. Raw Data", doc.Sections[1].Heading())
	assert.Equal(t, "3. Processed Data", doc.Sections[2].Heading())
	assert.Equal(t, "4. References (APA 7)", doc.Sections[3].Heading())
}

func TestProjectTables(t *testing.T) {
	doc := Project(sampleReport(), time.Now())

	raw := doc.Sections[1].Tables
	require.Len(t, raw, 1)
	assert.Empty(t, raw[0].Caption)
	assert.Equal(t, []string{"Trial", "Mass (g)", "", "", ""}, raw[0].Headers)
	assert.Equal(t, [][]string{
		{"Trial 1", "19.76", "", "", ""},
		{"Trial 2", "", "", "", ""},
		{"Trial 3", "", "", "", ""},
	}, raw[0].Rows)

	processed := doc.Sections[2].Tables
	require.Len(t, processed, 2, "default table is suppressed")
	assert.Equal(t, "Table 1", processed[0].Caption)
	assert.Equal(t, "Table 2", processed[1].Caption)
	assert.Equal(t, "Summary", processed[1].Title)
}

func TestProjectDropsBlankRows(t *testing.T) {
	r := report.NewReport("")
	r.Tables["rawData"] = []report.Table{{
		Headers: []string{"Trial", "A", "", "", ""},
		Rows:    [][]string{{"", " ", "", "", ""}, {"", "x", "", "", ""}},
	}}
	doc := Project(r, time.Now())
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, [][]string{{"", "x", "", "", ""}}, doc.Sections[0].Tables[0].Rows)
}

func TestProjectComputesTimeSpentFromStart(t *testing.T) {
	r := report.NewReport("")
	now := time.UnixMilli(1_700_000_125_000)
	r.StartedAt = 1_700_000_000_000
	doc := Project(r, now)
	assert.Equal(t, "Time Spent: 2m 5s", doc.Meta[3])
	assert.Equal(t, "Teacher: Not specified", doc.Meta[0])
}

func TestLayoutEmptyReport(t *testing.T) {
	canvas := NewRecordingCanvas()
	_, err := Layout(Project(report.NewReport(""), time.Now()), canvas)
	require.NoError(t, err)
	assert.Contains(t, canvas.Text(), EmptyDocumentText)
}

func TestLayoutPaginates(t *testing.T) {
	r := sampleReport()
	long := strings.Repeat("Measured values were recorded carefully at each step. ", 120)
	r.Sections["procedure"] = long
	r.Sections["evaluation"] = long
	table := report.DefaultTable(report.KindRawData)
	for i := 0; i < 60; i++ {
		table = report.AddRow(table, report.KindRawData)
	}
	for i := range table.Rows {
		table = report.SetCell(table, i, 1, "value")
	}
	r.Tables[report.KindRawData] = []report.Table{table}

	canvas := NewRecordingCanvas()
	_, err := Layout(Project(r, time.Now()), canvas)
	require.NoError(t, err)
	assert.Greater(t, canvas.Pages(), 3)

	bottom := LetterHeight - PageMargin
	for _, op := range canvas.Ops {
		assert.LessOrEqual(t, op.Y+op.Height, bottom, "op %+v crosses the bottom margin", op)
		assert.GreaterOrEqual(t, op.Y, PageMargin)
	}
}

func TestLayoutHeaderRowIsBold(t *testing.T) {
	canvas := NewRecordingCanvas()
	_, err := Layout(Project(sampleReport(), time.Now()), canvas)
	require.NoError(t, err)

	var cells []Op
	for _, op := range canvas.Ops {
		if op.Kind == "cell" {
			cells = append(cells, op)
		}
	}
	require.NotEmpty(t, cells)
	assert.Equal(t, StyleHeaderCell, cells[0].Style)
	assert.Equal(t, []string{"Trial"}, cells[0].Lines)
	assert.Equal(t, StyleCell, cells[5].Style)
}

func TestBackendsDrawTheSameText(t *testing.T) {
	doc := Project(sampleReport(), time.Now())
	want := expectedWords(doc)

	recording := NewRecordingCanvas()
	_, err := Layout(doc, recording)
	require.NoError(t, err)
	assert.Equal(t, want, strings.Fields(recording.Text()))

	basic, err := Layout(doc, NewBasicCanvas())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(basic, []byte("%PDF-1.4")))
	assert.Equal(t, want, drawnWords(basic))

	vectorCanvas := NewFPDFCanvas(doc.Title)
	vectorCanvas.SetCompression(false)
	vector, err := Layout(doc, vectorCanvas)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(vector, []byte("%PDF-")))
	assert.Equal(t, want, drawnWords(vector))
}

func TestBasicCanvasPages(t *testing.T) {
	c := NewBasicCanvas()
	c.DrawText(72, 72, 468, "Page (one)", StyleBody, AlignLeft)
	c.NewPage()
	c.DrawText(72, 72, 468, "Page two", StyleBody, AlignLeft)
	out, err := c.Finish()
	require.NoError(t, err)

	assert.Contains(t, string(out), "/Count 2")
	assert.Contains(t, string(out), `(Page \(one\)) Tj`)
	assert.True(t, strings.HasSuffix(string(out), "%%EOF\n"))
}

func TestCharWrap(t *testing.T) {
	assert.Equal(t, []string{""}, charWrap("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, charWrap("one two three", 8))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, charWrap("abcdefghij", 4))
}

func TestEscapePDFString(t *testing.T) {
	assert.Equal(t, `a\(b\)\\c`, escapePDFString(`a(b)\c`))
	assert.Equal(t, `\351`, escapePDFString("é"))
	assert.Equal(t, "?", escapePDFString("λ"))
}
