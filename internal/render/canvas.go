package render

import "strings"

// Style selects font and leading for a run of text.
type Style int

const (
	StyleBody Style = iota
	StyleTitle
	StyleMeta
	StyleHeading
	StyleLabel
	StyleCaption
	StyleCell
	StyleHeaderCell
	StyleEmpty
)

type FontFace int

const (
	FaceRegular FontFace = iota
	FaceBold
	FaceItalic
)

// Font describes how a Style is set. Leading is the distance between
// baselines of consecutive lines.
type Font struct {
	Face    FontFace
	Size    float64
	Leading float64
}

var fonts = map[Style]Font{
	StyleBody:       {FaceRegular, 12, 16},
	StyleTitle:      {FaceBold, 20, 24},
	StyleMeta:       {FaceRegular, 12, 15},
	StyleHeading:    {FaceBold, 13, 17},
	StyleLabel:      {FaceBold, 12, 16},
	StyleCaption:    {FaceBold, 11, 14},
	StyleCell:       {FaceRegular, 11, 13},
	StyleHeaderCell: {FaceBold, 11, 13},
	StyleEmpty:      {FaceItalic, 12, 15},
}

func (s Style) Font() Font {
	if f, ok := fonts[s]; ok {
		return f
	}
	return fonts[StyleBody]
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignJustify
)

// Canvas is the drawing surface a backend provides. Coordinates are points
// measured from the top-left corner of the current page; y is the top of
// the line or cell being drawn.
type Canvas interface {
	PageSize() (width, height float64)
	// Wrap breaks a single paragraph (no newlines) into lines that fit width.
	Wrap(text string, style Style, width float64) []string
	DrawText(x, y, width float64, text string, style Style, align Align)
	// DrawCell strokes a bordered box and writes lines inside it.
	DrawCell(x, y, width, height float64, lines []string, style Style)
	NewPage()
	Finish() ([]byte, error)
}

// charWrap breaks text greedily on spaces so that no line exceeds limit
// runes, splitting single words that are longer than a line.
func charWrap(text string, limit int) []string {
	if limit < 1 {
		limit = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var current []rune
	for _, word := range words {
		w := []rune(word)
		for len(w) > limit {
			if len(current) > 0 {
				lines = append(lines, string(current))
				current = nil
			}
			lines = append(lines, string(w[:limit]))
			w = w[limit:]
		}
		switch {
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= limit:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			lines = append(lines, string(current))
			current = append([]rune(nil), w...)
		}
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}

// approxCharsPerLine estimates how many average Times glyphs fit in width.
func approxCharsPerLine(style Style, width float64) int {
	return int(width / (style.Font().Size * 0.5))
}
