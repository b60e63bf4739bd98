package render

import (
	"encoding/json"
	"strings"
)

// Op is one drawing call captured by RecordingCanvas.
type Op struct {
	Page   int      `json:"page"`
	Kind   string   `json:"kind"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Style  Style    `json:"style"`
	Align  Align    `json:"align"`
	Lines  []string `json:"lines"`
}

// RecordingCanvas keeps every call instead of drawing. Finish returns the
// ops as JSON.
type RecordingCanvas struct {
	Width, Height float64
	Ops           []Op
	page          int
}

func NewRecordingCanvas() *RecordingCanvas {
	return &RecordingCanvas{Width: LetterWidth, Height: LetterHeight, page: 1}
}

func (c *RecordingCanvas) PageSize() (float64, float64) { return c.Width, c.Height }

func (c *RecordingCanvas) Wrap(text string, style Style, width float64) []string {
	return charWrap(text, approxCharsPerLine(style, width))
}

func (c *RecordingCanvas) DrawText(x, y, width float64, text string, style Style, align Align) {
	c.Ops = append(c.Ops, Op{
		Page: c.page, Kind: "text", X: x, Y: y, Width: width,
		Height: style.Font().Leading, Style: style, Align: align, Lines: []string{text},
	})
}

func (c *RecordingCanvas) DrawCell(x, y, width, height float64, lines []string, style Style) {
	c.Ops = append(c.Ops, Op{
		Page: c.page, Kind: "cell", X: x, Y: y, Width: width,
		Height: height, Style: style, Lines: append([]string(nil), lines...),
	})
}

func (c *RecordingCanvas) NewPage() { c.page++ }

func (c *RecordingCanvas) Pages() int { return c.page }

func (c *RecordingCanvas) Finish() ([]byte, error) {
	return json.Marshal(c.Ops)
}

// Text joins every drawn string in drawing order.
func (c *RecordingCanvas) Text() string {
	var parts []string
	for _, op := range c.Ops {
		parts = append(parts, op.Lines...)
	}
	return strings.Join(parts, " ")
}
