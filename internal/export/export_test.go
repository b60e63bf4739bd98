package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"labreport/api/internal/render"
	"labreport/api/internal/report"
)

func exampleReport(t *testing.T) report.Report {
	t.Helper()
	r, ok := report.ExampleReport("physics")
	require.True(t, ok)
	return r
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"<p>", "%3Cp%3E"},
		{"é", "%C3%A9"},
		{"a-b_c.d~e", "a-b_c.d~e"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, percentEncodeForDataURL(tt.input), tt.input)
	}
}

func TestRenderReportHTML(t *testing.T) {
	r := exampleReport(t)
	r.Sections["conclusion"] = "<script>alert(1)</script>"
	html, err := RenderReportHTML(render.Project(r, time.Now()))
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Acceleration of a Cart on an Inclined Track</h1>")
	assert.Contains(t, html, "1. Research Question")
	assert.Contains(t, html, "Sample Calculations")
	assert.Contains(t, html, "Table 2")
	assert.Contains(t, html, "<th>Trial</th>")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, render.EmptyDocumentText)
}

func TestRenderReportHTMLEmpty(t *testing.T) {
	html, err := RenderReportHTML(render.Project(report.NewReport(""), time.Now()))
	require.NoError(t, err)
	assert.Contains(t, html, render.EmptyDocumentText)
}

type fakeRenderer struct {
	name string
	data []byte
	err  error
	hits int
}

func (f *fakeRenderer) Name() string { return f.name }

func (f *fakeRenderer) Render(context.Context, render.Document) ([]byte, error) {
	f.hits++
	return f.data, f.err
}

func TestChainFallsBack(t *testing.T) {
	first := &fakeRenderer{name: "chrome", err: ErrPDFDependencyMissing}
	second := &fakeRenderer{name: "vector", data: []byte("%PDF-vector")}
	third := &fakeRenderer{name: "basic", data: []byte("%PDF-basic")}
	chain := NewChain(zap.NewNop(), first, second, third)

	data, err := chain.Render(context.Background(), render.Document{})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-vector"), data)
	assert.Equal(t, 0, third.hits)
	assert.Equal(t, "chrome>vector>basic", chain.Name())
}

func TestChainReportsEveryFailure(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(nil,
		&fakeRenderer{name: "a", err: boom},
		&fakeRenderer{name: "b"},
	)
	_, err := chain.Render(context.Background(), render.Document{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b: empty output")
}

func TestNewPDFRenderer(t *testing.T) {
	for mode, name := range map[string]string{
		"":       "chrome>vector>basic",
		"auto":   "chrome>vector>basic",
		"vector": "vector",
		"basic":  "basic",
		"chrome": "chrome",
	} {
		r, err := NewPDFRenderer(mode, time.Second, nil)
		require.NoError(t, err)
		assert.Equal(t, name, r.Name())
	}
	_, err := NewPDFRenderer("latex", 0, nil)
	assert.Error(t, err)
}

func TestServiceRenderPDF(t *testing.T) {
	svc := NewService(BasicRenderer{}, zap.NewNop())
	data, err := svc.RenderPDF(context.Background(), exampleReport(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
}

func TestServiceExportXLSX(t *testing.T) {
	svc := NewService(VectorRenderer{}, nil)
	res, err := svc.Export(context.Background(), exampleReport(t), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "acceleration-of-a-cart-on-an-inclined-track.xlsx", res.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Report", "Raw Data 1", "Processed Data 1", "Processed Data 2"}, f.GetSheetList())
	title, err := f.GetCellValue("Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Acceleration of a Cart on an Inclined Track", title)

	header, err := f.GetCellValue("Raw Data 1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Trial", header)
	cellValue, err := f.GetCellValue("Raw Data 1", "D4")
	require.NoError(t, err)
	assert.Equal(t, "0.81", cellValue)
}

func TestServiceExportPDFAndUnknown(t *testing.T) {
	svc := NewService(VectorRenderer{}, nil)
	res, err := svc.Export(context.Background(), exampleReport(t), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.True(t, strings.HasPrefix(string(res.Data), "%PDF-"))

	_, err = svc.Export(context.Background(), exampleReport(t), Format("odt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestServiceExportDOCX(t *testing.T) {
	svc := NewService(BasicRenderer{}, nil)
	res, err := svc.Export(context.Background(), exampleReport(t), FormatDOCX)
	if errors.Is(err, ErrDOCXDependencyMissing) {
		t.Skip("pandoc not installed")
	}
	require.NoError(t, err)
	_, err = zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	assert.NoError(t, err)
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("xlsx")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)
	_, ok = ParseFormat("XLSX")
	assert.False(t, ok)
}
