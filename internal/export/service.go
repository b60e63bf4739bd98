package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"labreport/api/internal/render"
	"labreport/api/internal/report"
)

// Service provides report export functionality
type Service struct {
	pdf    PDFRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new export service
func NewService(pdf PDFRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pdf: pdf, logger: logger, now: time.Now}
}

// RendererName names the configured PDF backend.
func (s *Service) RendererName() string {
	return s.pdf.Name()
}

// RenderPDF is the submission artifact: the report projected and drawn by
// the configured renderer.
func (s *Service) RenderPDF(ctx context.Context, r report.Report) ([]byte, error) {
	doc := render.Project(r, s.now())
	started := time.Now()
	data, err := s.pdf.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("pdf rendered",
		zap.String("report_id", r.ID),
		zap.String("renderer", s.pdf.Name()),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(started)),
	)
	return data, nil
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, r report.Report, format Format) (*Result, error) {
	doc := render.Project(r, s.now())
	baseName := report.SafeFileName(r.Title)

	switch format {
	case FormatPDF:
		data, err := s.pdf.Render(ctx, doc)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: baseName + ".pdf", MimeType: mimePDF}, nil
	case FormatDOCX:
		html, err := RenderReportHTML(doc)
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportDOCX(ctx, html, baseName)
	case FormatXLSX:
		return exportXLSX(doc, baseName)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
