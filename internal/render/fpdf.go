package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

var fpdfStyles = map[FontFace]string{
	FaceRegular: "",
	FaceBold:    "B",
	FaceItalic:  "I",
}

// FPDFCanvas draws with real Times metrics through go-pdf/fpdf.
type FPDFCanvas struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

// NewFPDFCanvas starts a Letter document with the first page open.
func NewFPDFCanvas(title string) *FPDFCanvas {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(false, PageMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("labreport", true)
	pdf.SetLineWidth(0.8)
	pdf.SetDrawColor(63, 107, 88)
	pdf.SetTextColor(17, 17, 17)
	pdf.AddPage()
	return &FPDFCanvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// SetCompression toggles stream compression. Tests turn it off to read the
// text back.
func (c *FPDFCanvas) SetCompression(on bool) {
	c.pdf.SetCompression(on)
}

func (c *FPDFCanvas) PageSize() (float64, float64) {
	return c.pdf.GetPageSize()
}

func (c *FPDFCanvas) useFont(style Style) Font {
	font := style.Font()
	c.pdf.SetFont("Times", fpdfStyles[font.Face], font.Size)
	return font
}

func (c *FPDFCanvas) Wrap(text string, style Style, width float64) []string {
	if strings.TrimSpace(text) == "" {
		return []string{""}
	}
	c.useFont(style)
	var lines []string
	for _, line := range c.pdf.SplitText(c.translate(text), width) {
		lines = append(lines, strings.TrimRight(line, " "))
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// DrawText writes one line. Justified lines are spread by placing each word
// explicitly. Wrap already returned translated text, so no second pass.
func (c *FPDFCanvas) DrawText(x, y, width float64, text string, style Style, align Align) {
	if text == "" {
		return
	}
	font := c.useFont(style)
	baseline := y + font.Size
	switch align {
	case AlignCenter:
		c.pdf.Text(x+max(0, (width-c.pdf.GetStringWidth(text))/2), baseline, text)
	case AlignJustify:
		words := strings.Fields(text)
		if len(words) < 2 {
			c.pdf.Text(x, baseline, text)
			return
		}
		used := 0.0
		for _, w := range words {
			used += c.pdf.GetStringWidth(w)
		}
		gap := (width - used) / float64(len(words)-1)
		if gap < c.pdf.GetStringWidth(" ") {
			c.pdf.Text(x, baseline, text)
			return
		}
		pos := x
		for _, w := range words {
			c.pdf.Text(pos, baseline, w)
			pos += c.pdf.GetStringWidth(w) + gap
		}
	default:
		c.pdf.Text(x, baseline, text)
	}
}

func (c *FPDFCanvas) DrawCell(x, y, width, height float64, lines []string, style Style) {
	c.pdf.Rect(x, y, width, height, "D")
	font := c.useFont(style)
	for i, line := range lines {
		if line == "" {
			continue
		}
		c.pdf.Text(x+cellPadding, y+cellPadding+float64(i)*font.Leading+font.Size, line)
	}
}

func (c *FPDFCanvas) NewPage() {
	c.pdf.AddPage()
}

func (c *FPDFCanvas) Finish() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
