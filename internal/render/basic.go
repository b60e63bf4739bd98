package render

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

var basicFontNames = map[FontFace]string{
	FaceRegular: "F1",
	FaceBold:    "F2",
	FaceItalic:  "F3",
}

// BasicCanvas writes a minimal PDF 1.4 file using only the standard Times
// fonts and text positioning operators. Glyph widths are estimated, so
// wrapping and centring are approximate.
type BasicCanvas struct {
	pages []*bytes.Buffer
}

func NewBasicCanvas() *BasicCanvas {
	c := &BasicCanvas{}
	c.NewPage()
	return c
}

func (c *BasicCanvas) PageSize() (float64, float64) { return LetterWidth, LetterHeight }

func (c *BasicCanvas) Wrap(text string, style Style, width float64) []string {
	return charWrap(text, approxCharsPerLine(style, width))
}

func (c *BasicCanvas) current() *bytes.Buffer {
	return c.pages[len(c.pages)-1]
}

func (c *BasicCanvas) DrawText(x, y, width float64, text string, style Style, align Align) {
	if text == "" {
		return
	}
	font := style.Font()
	if align == AlignCenter {
		estimated := float64(len([]rune(text))) * font.Size * 0.5
		x += max(0, (width-estimated)/2)
	}
	c.text(x, y, text, font)
}

func (c *BasicCanvas) text(x, top float64, text string, font Font) {
	baseline := LetterHeight - (top + font.Size)
	fmt.Fprintf(c.current(), "BT /%s %.1f Tf 1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n",
		basicFontNames[font.Face], font.Size, x, baseline, escapePDFString(text))
}

func (c *BasicCanvas) DrawCell(x, y, width, height float64, lines []string, style Style) {
	fmt.Fprintf(c.current(), "%.2f %.2f %.2f %.2f re S\n", x, LetterHeight-y-height, width, height)
	font := style.Font()
	for i, line := range lines {
		if line == "" {
			continue
		}
		c.text(x+cellPadding, y+cellPadding+float64(i)*font.Leading, line, font)
	}
}

func (c *BasicCanvas) NewPage() {
	page := &bytes.Buffer{}
	page.WriteString("0.8 w\n")
	c.pages = append(c.pages, page)
}

func (c *BasicCanvas) Finish() ([]byte, error) {
	var out bytes.Buffer
	var offsets []int
	object := func(body string) {
		offsets = append(offsets, out.Len())
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	out.WriteString("%PDF-1.4\n")
	const firstPage = 6
	kids := make([]string, len(c.pages))
	for i := range c.pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}

	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(c.pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Times-Roman /Encoding /WinAnsiEncoding >>")
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Times-Bold /Encoding /WinAnsiEncoding >>")
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Times-Italic /Encoding /WinAnsiEncoding >>")
	for i, page := range c.pages {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] "+
			"/Resources << /Font << /F1 3 0 R /F2 4 0 R /F3 5 0 R >> >> /Contents %d 0 R >>",
			LetterWidth, LetterHeight, firstPage+2*i+1))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", page.Len(), page.String()))
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return out.Bytes(), nil
}

// escapePDFString makes text safe inside a PDF literal string. Runes outside
// Latin-1 cannot be shown by the standard fonts and become '?'.
func escapePDFString(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 32:
			b.WriteByte(' ')
		case r < 127:
			b.WriteRune(r)
		case r <= 255:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
