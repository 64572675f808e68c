// Package svgcanvas is the SVG backend. Paths are buffered as path data
// and emitted on Fill or Stroke inside a group carrying the world->screen
// matrix, so the document stays in graph coordinates.
package svgcanvas

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/vanderheijden86/casegraph/pkg/render"
)

// FontFamily is the label font; text is measured with Go Regular.
const FontFamily = "Go, Helvetica, Arial, sans-serif"

const measurePx = 64

var (
	measureOnce sync.Once
	measureFace font.Face
)

func measureWith() font.Face {
	measureOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return
		}
		measureFace, _ = opentype.NewFace(f, &opentype.FaceOptions{Size: measurePx, DPI: 72})
	})
	return measureFace
}

// Canvas writes SVG elements as it draws. Call End when done.
type Canvas struct {
	doc           *svg.SVG
	width, height int

	scale, tx, ty float64
	group         bool

	fill, stroke color.Color
	lineWidth    float64
	fontSize     float64

	path  strings.Builder
	start [2]float64
	cur   [2]float64
}

// New starts a width x height document on w.
func New(w io.Writer, width, height int) *Canvas {
	c := &Canvas{
		doc:       svg.New(w),
		width:     width,
		height:    height,
		scale:     1,
		fill:      color.Black,
		stroke:    color.Black,
		lineWidth: 1,
		fontSize:  12,
	}
	c.doc.Start(width, height)
	return c
}

// End closes any open group and the document.
func (c *Canvas) End() {
	if c.group {
		c.doc.Gend()
		c.group = false
	}
	c.doc.End()
}

func (c *Canvas) Size() (float64, float64) {
	return float64(c.width), float64(c.height)
}

func (c *Canvas) SetTransform(scale, tx, ty float64) {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	c.scale, c.tx, c.ty = scale, tx, ty
	c.openGroup()
}

func (c *Canvas) openGroup() {
	if c.group {
		c.doc.Gend()
	}
	c.doc.Gtransform(fmt.Sprintf("matrix(%s 0 0 %s %s %s)", num(c.scale), num(c.scale), num(c.tx), num(c.ty)))
	c.group = true
}

func (c *Canvas) Clear(col color.Color) {
	reopen := c.group
	if c.group {
		c.doc.Gend()
		c.group = false
	}
	c.doc.Rect(0, 0, c.width, c.height, "fill:"+css(col))
	if reopen {
		c.openGroup()
	}
}

func (c *Canvas) SetFillColor(col color.Color)   { c.fill = col }
func (c *Canvas) SetStrokeColor(col color.Color) { c.stroke = col }
func (c *Canvas) SetLineWidth(w float64)         { c.lineWidth = w }
func (c *Canvas) SetFontSize(size float64)       { c.fontSize = size }

func (c *Canvas) BeginPath() {
	c.path.Reset()
}

func (c *Canvas) cmd(format string, args ...float64) {
	if c.path.Len() > 0 {
		c.path.WriteByte(' ')
	}
	parts := make([]any, len(args))
	for i, a := range args {
		parts[i] = num(a)
	}
	fmt.Fprintf(&c.path, format, parts...)
}

func (c *Canvas) MoveTo(x, y float64) {
	c.cmd("M%s %s", x, y)
	c.start = [2]float64{x, y}
	c.cur = c.start
}

func (c *Canvas) LineTo(x, y float64) {
	c.cmd("L%s %s", x, y)
	c.cur = [2]float64{x, y}
}

func (c *Canvas) QuadraticTo(cx, cy, x, y float64) {
	c.cmd("Q%s %s %s %s", cx, cy, x, y)
	c.cur = [2]float64{x, y}
}

func (c *Canvas) Arc(x, y, r, a0, a1 float64) {
	sx, sy := x+r*math.Cos(a0), y+r*math.Sin(a0)
	if c.path.Len() == 0 {
		c.MoveTo(sx, sy)
	} else {
		c.LineTo(sx, sy)
	}
	sweep := a1 - a0
	if math.Abs(sweep) >= 2*math.Pi {
		// A full circle is two half arcs; one arc with equal endpoints
		// draws nothing.
		ox, oy := x-r*math.Cos(a0), y-r*math.Sin(a0)
		c.cmd("A%s %s 0 1 1 %s %s", r, r, ox, oy)
		c.cmd("A%s %s 0 1 1 %s %s", r, r, sx, sy)
		return
	}
	large := 0.0
	if math.Abs(sweep) > math.Pi {
		large = 1
	}
	dir := 1.0
	if sweep < 0 {
		dir = 0
	}
	ex, ey := x+r*math.Cos(a1), y+r*math.Sin(a1)
	c.cmd("A%s %s 0 %s %s %s %s", r, r, large, dir, ex, ey)
	c.cur = [2]float64{ex, ey}
}

func (c *Canvas) RoundedRect(x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	c.MoveTo(x+r, y)
	c.cmd("H%s", x+w-r)
	c.cmd("A%s %s 0 0 1 %s %s", r, r, x+w, y+r)
	c.cmd("V%s", y+h-r)
	c.cmd("A%s %s 0 0 1 %s %s", r, r, x+w-r, y+h)
	c.cmd("H%s", x+r)
	c.cmd("A%s %s 0 0 1 %s %s", r, r, x, y+h-r)
	c.cmd("V%s", y+r)
	c.cmd("A%s %s 0 0 1 %s %s", r, r, x+r, y)
	c.ClosePath()
}

func (c *Canvas) ClosePath() {
	if c.path.Len() == 0 {
		return
	}
	c.path.WriteString(" Z")
	c.cur = c.start
}

func (c *Canvas) Fill() {
	if c.path.Len() == 0 {
		return
	}
	c.doc.Path(c.path.String(), "fill:"+css(c.fill)+opacity("fill-opacity", c.fill))
}

func (c *Canvas) Stroke() {
	if c.path.Len() == 0 {
		return
	}
	c.doc.Path(c.path.String(), fmt.Sprintf("fill:none;stroke:%s;stroke-width:%s%s",
		css(c.stroke), num(c.lineWidth), opacity("stroke-opacity", c.stroke)))
}

// MeasureText measures with Go Regular, scaled to the current font size.
func (c *Canvas) MeasureText(s string) float64 {
	f := measureWith()
	if f == nil {
		return float64(len([]rune(s))) * c.fontSize * 0.55
	}
	adv := font.MeasureString(f, s)
	return fixedToFloat(adv) / measurePx * c.fontSize
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func (c *Canvas) FillText(s string, x, y float64) {
	// svgo positions text at integers, so translate to the float anchor
	// and draw at the origin.
	c.doc.Gtransform(fmt.Sprintf("translate(%s %s)", num(x), num(y)))
	c.doc.Text(0, 0, s, fmt.Sprintf("fill:%s;font-size:%spx;font-family:%s;text-anchor:middle;dominant-baseline:central%s",
		css(c.fill), num(c.fontSize), FontFamily, opacity("fill-opacity", c.fill)))
	c.doc.Gend()
}

func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	uri, err := dataURI(img)
	if err != nil {
		return
	}
	c.doc.Gtransform(fmt.Sprintf("translate(%s %s) scale(%s %s)",
		num(x), num(y), num(w/float64(b.Dx())), num(h/float64(b.Dy()))))
	c.doc.Image(0, 0, b.Dx(), b.Dy(), uri)
	c.doc.Gend()
}

func dataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func num(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func css(c color.Color) string {
	return render.Hex(c)
}

func opacity(prop string, c color.Color) string {
	_, _, _, a := c.RGBA()
	if a == 0xffff {
		return ""
	}
	return fmt.Sprintf(";%s:%s", prop, num(float64(a)/0xffff))
}
