package render

import (
	"fmt"
	"strings"
)

const (
	PageMargin = 72.0

	headingKeepWith = 48.0
	cellPadding     = 5.0
	minCellHeight   = 16.0
	gridBottomSlack = 22.0
	gridGapAfter    = 12.0
)

// Layout paginates doc onto c and returns the finished bytes. It is the only
// place that decides where things go; backends just draw.
func Layout(doc Document, c Canvas) ([]byte, error) {
	w, h := c.PageSize()
	l := &layout{
		canvas: c,
		left:   PageMargin,
		width:  w - 2*PageMargin,
		bottom: h - PageMargin,
		y:      PageMargin,
	}

	l.paragraph(doc.Title, StyleTitle, AlignCenter)
	l.space(StyleTitle, 0.3)
	for _, meta := range doc.Meta {
		l.paragraph(meta, StyleMeta, AlignCenter)
	}
	l.space(StyleMeta, 1)

	if len(doc.Sections) == 0 {
		l.paragraph(EmptyDocumentText, StyleEmpty, AlignLeft)
	}
	for _, s := range doc.Sections {
		l.section(s)
	}

	out, err := c.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish document: %w", err)
	}
	return out, nil
}

type layout struct {
	canvas Canvas
	left   float64
	width  float64
	bottom float64
	y      float64
}

func (l *layout) ensure(height float64) {
	if l.y+height > l.bottom {
		l.canvas.NewPage()
		l.y = PageMargin
	}
}

func (l *layout) space(style Style, lines float64) {
	l.y += style.Font().Leading * lines
}

// paragraph draws text, honouring explicit newlines. Justified paragraphs
// leave their final line ragged.
func (l *layout) paragraph(text string, style Style, align Align) {
	leading := style.Font().Leading
	for _, para := range strings.Split(text, "\n") {
		lines := l.canvas.Wrap(strings.TrimSpace(para), style, l.width)
		for i, line := range lines {
			lineAlign := align
			if align == AlignJustify && i == len(lines)-1 {
				lineAlign = AlignLeft
			}
			l.ensure(leading)
			l.canvas.DrawText(l.left, l.y, l.width, line, style, lineAlign)
			l.y += leading
		}
	}
}

func (l *layout) section(s Section) {
	l.ensure(headingKeepWith)
	l.paragraph(s.Heading(), StyleHeading, AlignLeft)
	l.space(StyleHeading, 0.3)

	if s.Text != "" {
		l.paragraph(s.Text, StyleBody, AlignJustify)
		l.space(StyleBody, 0.7)
	}
	if s.Notes != "" {
		l.paragraph(s.Notes, StyleBody, AlignJustify)
		l.space(StyleBody, 0.5)
	}
	if s.SampleCalculations != "" {
		l.paragraph(SampleCalculationsLabel, StyleLabel, AlignLeft)
		l.space(StyleLabel, 0.2)
		l.paragraph(s.SampleCalculations, StyleBody, AlignJustify)
		l.space(StyleBody, 0.5)
	}
	for _, t := range s.Tables {
		if t.Title != "" {
			l.paragraph(t.Title, StyleCaption, AlignLeft)
			l.space(StyleCaption, 0.2)
		}
		if t.Caption != "" {
			l.paragraph(t.Caption, StyleCaption, AlignLeft)
			l.space(StyleCaption, 0.25)
		}
		l.grid(t)
	}
}

// grid draws the header row in bold followed by the data rows. Each row is
// as tall as its most wrapped cell and moves to a new page whole.
func (l *layout) grid(t TableBlock) {
	columns := max(len(t.Headers), 1)
	colWidth := l.width / float64(columns)
	rows := append([][]string{t.Headers}, t.Rows...)

	for i, row := range rows {
		style := StyleCell
		if i == 0 {
			style = StyleHeaderCell
		}
		wrapped := make([][]string, columns)
		tallest := minCellHeight
		for col := range wrapped {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			wrapped[col] = l.canvas.Wrap(cell, style, colWidth-2*cellPadding)
			tallest = max(tallest, float64(len(wrapped[col]))*style.Font().Leading)
		}
		height := tallest + 2*cellPadding

		if l.y+height > l.bottom-gridBottomSlack {
			l.canvas.NewPage()
			l.y = PageMargin
		}
		for col, lines := range wrapped {
			l.canvas.DrawCell(l.left+colWidth*float64(col), l.y, colWidth, height, lines, style)
		}
		l.y += height
	}
	l.y += gridGapAfter
}
