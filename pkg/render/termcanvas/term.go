// Package termcanvas is the terminal backend used by the interactive viewer.
//
// Each character cell holds two pixels stacked vertically and is printed as
// an upper half block with the top pixel as foreground and the bottom pixel
// as background. Text occupies whole cells and is measured with go-runewidth,
// so one pixel equals one column horizontally.
package termcanvas

import (
	"image"
	"image/color"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/casegraph/pkg/render"
)

const halfBlock = '▀'

// wideTail marks the second column of a double-width rune.
const wideTail = -1

type cell struct {
	r    rune
	text color.Color
}

type point struct{ x, y float64 }

// Canvas is a grid of cols x rows cells, 2*rows pixels tall.
type Canvas struct {
	cols, rows int
	bg         color.Color
	px         []color.Color
	cells      []cell

	scale, tx, ty float64
	fill, stroke  color.Color
	fontSize      float64

	subpaths [][]point
	start    point
}

// New returns a canvas of cols x rows character cells.
func New(cols, rows int) *Canvas {
	cols, rows = max(cols, 1), max(rows, 1)
	c := &Canvas{
		cols:   cols,
		rows:   rows,
		bg:     color.Black,
		px:     make([]color.Color, cols*rows*2),
		cells:  make([]cell, cols*rows),
		scale:  1,
		fill:   color.White,
		stroke: color.White,
	}
	return c
}

// Cols and Rows return the grid size in cells.
func (c *Canvas) Cols() int { return c.cols }
func (c *Canvas) Rows() int { return c.rows }

// Size is in pixels: one per column, two per row.
func (c *Canvas) Size() (float64, float64) {
	return float64(c.cols), float64(c.rows * 2)
}

func (c *Canvas) SetTransform(scale, tx, ty float64) {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	c.scale, c.tx, c.ty = scale, tx, ty
}

func (c *Canvas) pt(x, y float64) point {
	return point{x*c.scale + c.tx, y*c.scale + c.ty}
}

func (c *Canvas) Clear(col color.Color) {
	c.bg = col
	clear(c.px)
	clear(c.cells)
}

func (c *Canvas) SetFillColor(col color.Color)   { c.fill = col }
func (c *Canvas) SetStrokeColor(col color.Color) { c.stroke = col }

// SetLineWidth is ignored: every stroke is one pixel wide.
func (c *Canvas) SetLineWidth(float64)     {}
func (c *Canvas) SetFontSize(size float64) { c.fontSize = size }

func (c *Canvas) BeginPath() {
	c.subpaths = c.subpaths[:0]
}

func (c *Canvas) add(p point) {
	if len(c.subpaths) == 0 {
		c.subpaths = append(c.subpaths, []point{p})
		return
	}
	last := len(c.subpaths) - 1
	c.subpaths[last] = append(c.subpaths[last], p)
}

func (c *Canvas) MoveTo(x, y float64) {
	p := c.pt(x, y)
	c.subpaths = append(c.subpaths, []point{p})
	c.start = p
}

func (c *Canvas) LineTo(x, y float64) {
	c.add(c.pt(x, y))
}

func (c *Canvas) current() (point, bool) {
	if len(c.subpaths) == 0 {
		return point{}, false
	}
	sp := c.subpaths[len(c.subpaths)-1]
	return sp[len(sp)-1], true
}

func (c *Canvas) QuadraticTo(cx, cy, x, y float64) {
	p0, ok := c.current()
	p1, p2 := c.pt(cx, cy), c.pt(x, y)
	if !ok {
		c.MoveTo(cx, cy)
		p0 = p1
	}
	const steps = 12
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		u := 1 - t
		c.add(point{
			u*u*p0.x + 2*u*t*p1.x + t*t*p2.x,
			u*u*p0.y + 2*u*t*p1.y + t*t*p2.y,
		})
	}
}

func (c *Canvas) Arc(x, y, r, a0, a1 float64) {
	center := c.pt(x, y)
	rp := r * c.scale
	steps := int(math.Ceil(math.Abs(a1-a0) * rp / 2))
	steps = min(max(steps, 8), 64)
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(steps)
		c.add(point{center.x + rp*math.Cos(a), center.y + rp*math.Sin(a)})
	}
}

// RoundedRect draws a plain rectangle; the corners are below cell
// resolution.
func (c *Canvas) RoundedRect(x, y, w, h, _ float64) {
	c.MoveTo(x, y)
	c.LineTo(x+w, y)
	c.LineTo(x+w, y+h)
	c.LineTo(x, y+h)
	c.ClosePath()
}

func (c *Canvas) ClosePath() {
	if len(c.subpaths) == 0 {
		return
	}
	sp := c.subpaths[len(c.subpaths)-1]
	c.add(sp[0])
}

func (c *Canvas) set(x, y int, col color.Color) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows*2 {
		return
	}
	c.px[y*c.cols+x] = col
}

// Fill paints every pixel whose center is inside the path (even-odd).
// A path smaller than a pixel still marks the pixel under its center.
func (c *Canvas) Fill() {
	if len(c.subpaths) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, sp := range c.subpaths {
		for _, p := range sp {
			minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
			minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
		}
	}
	if math.IsInf(minX, 0) || math.IsNaN(minX+minY+maxX+maxY) {
		return
	}
	y0 := max(int(math.Floor(minY)), 0)
	y1 := min(int(math.Ceil(maxY)), c.rows*2-1)
	painted := false
	var xs []float64
	for py := y0; py <= y1; py++ {
		sy := float64(py) + 0.5
		xs = xs[:0]
		for _, sp := range c.subpaths {
			for i := range sp {
				a, b := sp[i], sp[(i+1)%len(sp)]
				if (a.y <= sy) == (b.y <= sy) {
					continue
				}
				xs = append(xs, a.x+(sy-a.y)/(b.y-a.y)*(b.x-a.x))
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for px := max(int(math.Ceil(xs[i]-0.5)), 0); float64(px)+0.5 < xs[i+1] && px < c.cols; px++ {
				c.set(px, py, c.fill)
				painted = true
			}
		}
	}
	if !painted {
		c.set(int(math.Floor((minX+maxX)/2)), int(math.Floor((minY+maxY)/2)), c.fill)
	}
}

// Stroke draws each segment with Bresenham's algorithm.
func (c *Canvas) Stroke() {
	for _, sp := range c.subpaths {
		for i := 1; i < len(sp); i++ {
			c.line(sp[i-1], sp[i])
		}
	}
}

func (c *Canvas) line(a, b point) {
	if math.IsNaN(a.x+a.y+b.x+b.y) || math.IsInf(a.x+a.y+b.x+b.y, 0) {
		return
	}
	x0, y0 := int(math.Floor(a.x)), int(math.Floor(a.y))
	x1, y1 := int(math.Floor(b.x)), int(math.Floor(b.y))
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	// Segments far outside the grid are clipped by set; cap the walk so a
	// huge zoom cannot stall the frame.
	limit := 4 * (c.cols + c.rows*2)
	for err := dx + dy; limit > 0; limit-- {
		c.set(x0, y0, c.stroke)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MeasureText returns the width in world units. Every string is one cell
// tall whatever the font size.
func (c *Canvas) MeasureText(s string) float64 {
	return float64(runewidth.StringWidth(s)) / c.scale
}

// FillText centers s on the cell containing (x, y). Text past the grid
// edge is cut.
func (c *Canvas) FillText(s string, x, y float64) {
	p := c.pt(x, y)
	if math.IsNaN(p.x+p.y) || math.IsInf(p.x+p.y, 0) {
		return
	}
	row := int(math.Floor(p.y / 2))
	if row < 0 || row >= c.rows {
		return
	}
	col := int(math.Round(p.x - float64(runewidth.StringWidth(s))/2))
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= c.cols {
			c.cells[row*c.cols+col] = cell{r: r, text: c.fill}
			if w == 2 {
				c.cells[row*c.cols+col+1] = cell{r: wideTail}
			}
		}
		col += w
		if col >= c.cols {
			return
		}
	}
}

// DrawImage samples img nearest-neighbor into the destination pixels,
// skipping transparent source pixels.
func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	b := img.Bounds()
	p0, p1 := c.pt(x, y), c.pt(x+w, y+h)
	pw, ph := p1.x-p0.x, p1.y-p0.y
	if b.Empty() || pw < 1 || ph < 1 {
		return
	}
	for py := int(math.Floor(p0.y)); float64(py) < p1.y; py++ {
		for px := int(math.Floor(p0.x)); float64(px) < p1.x; px++ {
			sx := b.Min.X + int((float64(px)+0.5-p0.x)/pw*float64(b.Dx()))
			sy := b.Min.Y + int((float64(py)+0.5-p0.y)/ph*float64(b.Dy()))
			if sx < b.Min.X || sy < b.Min.Y || sx >= b.Max.X || sy >= b.Max.Y {
				continue
			}
			col := img.At(sx, sy)
			if _, _, _, a := col.RGBA(); a < 0x8000 {
				continue
			}
			c.set(px, py, col)
		}
	}
}

// Pixel returns the color at pixel (x, y), the background where nothing
// was drawn.
func (c *Canvas) Pixel(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows*2 {
		return nil
	}
	if p := c.px[y*c.cols+x]; p != nil {
		return p
	}
	return c.bg
}

// Text returns the characters of row, with spaces where no text was
// written.
func (c *Canvas) Text(row int) string {
	if row < 0 || row >= c.rows {
		return ""
	}
	var sb strings.Builder
	for col := 0; col < c.cols; col++ {
		switch r := c.cells[row*c.cols+col].r; r {
		case 0:
			sb.WriteByte(' ')
		case wideTail:
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Render returns the grid as styled lines joined by newlines.
func (c *Canvas) Render() string {
	return c.RenderWith(lipgloss.DefaultRenderer())
}

// RenderWith styles the grid with r. Consecutive cells with the same
// colors share one styled run.
func (c *Canvas) RenderWith(r *lipgloss.Renderer) string {
	var out strings.Builder
	styles := make(map[[2]string]lipgloss.Style)
	style := func(fg, bg string) lipgloss.Style {
		k := [2]string{fg, bg}
		if s, ok := styles[k]; ok {
			return s
		}
		s := r.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
		styles[k] = s
		return s
	}
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			out.WriteByte('\n')
		}
		var run strings.Builder
		var runKey [2]string
		flush := func() {
			if run.Len() > 0 {
				out.WriteString(style(runKey[0], runKey[1]).Render(run.String()))
				run.Reset()
			}
		}
		for col := 0; col < c.cols; col++ {
			ch, fg, bg := c.glyph(col, row)
			if ch == wideTail {
				continue
			}
			k := [2]string{fg, bg}
			if k != runKey {
				flush()
				runKey = k
			}
			run.WriteRune(ch)
		}
		flush()
	}
	return out.String()
}

func (c *Canvas) glyph(col, row int) (rune, string, string) {
	top, bottom := c.Pixel(col, row*2), c.Pixel(col, row*2+1)
	if t := c.cells[row*c.cols+col]; t.r != 0 {
		if t.r == wideTail {
			return wideTail, "", ""
		}
		return t.r, render.Hex(t.text), render.Hex(bottom)
	}
	th, bh := render.Hex(top), render.Hex(bottom)
	if th == bh {
		return ' ', th, bh
	}
	return halfBlock, th, bh
}
