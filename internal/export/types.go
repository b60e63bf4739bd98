// Package export turns reports into downloadable files: the submission PDF
// and DOCX/XLSX copies.
package export

import (
	"context"
	"errors"

	"labreport/api/internal/render"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFormat maps a query value onto a Format.
func ParseFormat(value string) (Format, bool) {
	switch f := Format(value); f {
	case FormatPDF, FormatDOCX, FormatXLSX:
		return f, true
	}
	return "", false
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// PDFRenderer draws a projected document to PDF bytes.
type PDFRenderer interface {
	Name() string
	Render(ctx context.Context, doc render.Document) ([]byte, error)
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	ErrUnsupportedFormat     = errors.New("export format not supported")
)
