package render

import (
	"image"
	"image/color"
	"unicode/utf8"
)

// Op is one recorded draw call.
type Op struct {
	Name  string
	Args  []float64
	Text  string
	Color color.Color
}

// Recorder is a Canvas that records calls instead of drawing. Text is
// measured as 0.6em per rune.
type Recorder struct {
	Width, Height float64
	Ops           []Op

	fill, stroke color.Color
	lineWidth    float64
	fontSize     float64
	scale        float64
	tx, ty       float64

	// Panic, when set, is called before every FillText; tests use it to
	// inject failures.
	Panic func(text string)
}

// NewRecorder returns a recorder for a width x height surface.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height, scale: 1, fontSize: 10}
}

func (r *Recorder) add(name string, c color.Color, text string, args ...float64) {
	r.Ops = append(r.Ops, Op{Name: name, Args: args, Text: text, Color: c})
}

func (r *Recorder) Size() (float64, float64) { return r.Width, r.Height }

func (r *Recorder) SetTransform(scale, tx, ty float64) {
	r.scale, r.tx, r.ty = scale, tx, ty
	r.add("transform", nil, "", scale, tx, ty)
}

func (r *Recorder) Clear(c color.Color)           { r.add("clear", c, "") }
func (r *Recorder) SetFillColor(c color.Color)    { r.fill = c }
func (r *Recorder) SetStrokeColor(c color.Color)  { r.stroke = c }
func (r *Recorder) SetLineWidth(w float64)        { r.lineWidth = w }
func (r *Recorder) SetFontSize(size float64)      { r.fontSize = size }
func (r *Recorder) BeginPath()                    { r.add("begin", nil, "") }
func (r *Recorder) MoveTo(x, y float64)           { r.add("move", nil, "", x, y) }
func (r *Recorder) LineTo(x, y float64)           { r.add("line", nil, "", x, y) }
func (r *Recorder) QuadraticTo(cx, cy, x, y float64) {
	r.add("quad", nil, "", cx, cy, x, y)
}
func (r *Recorder) Arc(x, y, rad, a0, a1 float64) { r.add("arc", nil, "", x, y, rad, a0, a1) }
func (r *Recorder) RoundedRect(x, y, w, h, rad float64) {
	r.add("rrect", nil, "", x, y, w, h, rad)
}
func (r *Recorder) ClosePath() { r.add("close", nil, "") }
func (r *Recorder) Fill()      { r.add("fill", r.fill, "") }
func (r *Recorder) Stroke()    { r.add("stroke", r.stroke, "", r.lineWidth) }

func (r *Recorder) MeasureText(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * r.fontSize * 0.6
}

func (r *Recorder) FillText(s string, x, y float64) {
	if r.Panic != nil {
		r.Panic(s)
	}
	r.add("text", r.fill, s, x, y, r.fontSize)
}

func (r *Recorder) DrawImage(img image.Image, x, y, w, h float64) {
	r.add("image", nil, "", x, y, w, h)
}

// Texts returns the strings drawn with FillText, in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Name == "text" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Count returns how many ops have the given name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Strokes returns the line widths of every stroke, in order.
func (r *Recorder) Strokes() []float64 {
	var out []float64
	for _, op := range r.Ops {
		if op.Name == "stroke" {
			out = append(out, op.Args[0])
		}
	}
	return out
}

// Reset drops recorded ops.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}
