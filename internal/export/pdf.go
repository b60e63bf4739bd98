package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"labreport/api/internal/render"
)

// percentEncodeForDataURL encodes a string for use in a data URL
// Unlike url.QueryEscape, this properly encodes spaces as %20 for data URLs
func percentEncodeForDataURL(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			result.WriteRune(r)
		case r == ' ':
			result.WriteString("%20")
		default:
			for _, b := range []byte(string(r)) {
				fmt.Fprintf(&result, "%%%02X", b)
			}
		}
	}
	return result.String()
}

// chromeBinary finds a headless-capable browser on PATH.
func chromeBinary() (string, bool) {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// ChromeRenderer prints the HTML rendition of a report with headless Chrome.
type ChromeRenderer struct {
	Timeout time.Duration
}

func (ChromeRenderer) Name() string { return "chrome" }

func (c ChromeRenderer) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	binary, ok := chromeBinary()
	if !ok {
		return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
	}
	html, err := RenderReportHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Chrome options for headless mode in container
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(binary),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)

	var pdfData []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5). // Letter size
				WithPaperHeight(11.0).
				WithMarginTop(1.0).
				WithMarginBottom(1.0).
				WithMarginLeft(1.0).
				WithMarginRight(1.0).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdfData, nil
}

// VectorRenderer lays the document out with fpdf.
type VectorRenderer struct{}

func (VectorRenderer) Name() string { return "vector" }

func (VectorRenderer) Render(_ context.Context, doc render.Document) ([]byte, error) {
	return render.Layout(doc, render.NewFPDFCanvas(doc.Title))
}

// BasicRenderer is the last resort: plain text positioning, no fonts to load.
type BasicRenderer struct{}

func (BasicRenderer) Name() string { return "basic" }

func (BasicRenderer) Render(_ context.Context, doc render.Document) ([]byte, error) {
	return render.Layout(doc, render.NewBasicCanvas())
}

// Chain tries renderers in order and returns the first success.
type Chain struct {
	renderers []PDFRenderer
	logger    *zap.Logger
}

func NewChain(logger *zap.Logger, renderers ...PDFRenderer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{renderers: renderers, logger: logger}
}

// NewPDFRenderer builds the renderer for a configured mode: "chrome",
// "vector", "basic", or "auto" for chrome then vector then basic. timeout
// bounds a single chrome print.
func NewPDFRenderer(mode string, timeout time.Duration, logger *zap.Logger) (PDFRenderer, error) {
	chrome := ChromeRenderer{Timeout: timeout}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return NewChain(logger, chrome, VectorRenderer{}, BasicRenderer{}), nil
	case "chrome":
		return chrome, nil
	case "vector":
		return VectorRenderer{}, nil
	case "basic":
		return BasicRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown pdf renderer %q", mode)
	}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.renderers))
	for i, r := range c.renderers {
		names[i] = r.Name()
	}
	return strings.Join(names, ">")
}

func (c *Chain) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	var errs []error
	for _, r := range c.renderers {
		data, err := r.Render(ctx, doc)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err == nil {
			err = errors.New("empty output")
		}
		if !errors.Is(err, ErrPDFDependencyMissing) {
			c.logger.Warn("pdf renderer failed", zap.String("renderer", r.Name()), zap.Error(err))
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
	}
	if len(errs) == 0 {
		return nil, errors.New("no pdf renderer configured")
	}
	return nil, errors.Join(errs...)
}
