// Package rastercanvas is the PNG backend: a render.Canvas over a gg
// context with Go Regular label faces.
//
// gg scales paths with its matrix but not glyphs, so the transform is applied
// here by hand and faces are picked per screen pixel size.
package rastercanvas

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// maxFacePx caps cached face sizes; larger text is drawn at the cap.
const maxFacePx = 160

// Canvas draws into an RGBA image.
type Canvas struct {
	dc            *gg.Context
	width, height int

	scale, tx, ty float64
	fill, stroke  color.Color
	lineWidth     float64
	fontSize      float64

	font  *opentype.Font
	faces map[int]font.Face
}

// New returns a width x height canvas. If the embedded font cannot be
// parsed text falls back to the fixed 7x13 bitmap face.
func New(width, height int) *Canvas {
	c := &Canvas{
		dc:        gg.NewContext(width, height),
		width:     width,
		height:    height,
		scale:     1,
		fill:      color.Black,
		stroke:    color.Black,
		lineWidth: 1,
		fontSize:  12,
		faces:     make(map[int]font.Face),
	}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		c.font = f
	}
	return c
}

func (c *Canvas) Size() (float64, float64) {
	return float64(c.width), float64(c.height)
}

func (c *Canvas) SetTransform(scale, tx, ty float64) {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	c.scale, c.tx, c.ty = scale, tx, ty
}

func (c *Canvas) pt(x, y float64) (float64, float64) {
	return x*c.scale + c.tx, y*c.scale + c.ty
}

func (c *Canvas) Clear(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

func (c *Canvas) SetFillColor(col color.Color)   { c.fill = col }
func (c *Canvas) SetStrokeColor(col color.Color) { c.stroke = col }
func (c *Canvas) SetLineWidth(w float64)         { c.lineWidth = w }
func (c *Canvas) SetFontSize(size float64)       { c.fontSize = size }

func (c *Canvas) BeginPath() { c.dc.ClearPath() }

func (c *Canvas) MoveTo(x, y float64) {
	c.dc.MoveTo(c.pt(x, y))
}

func (c *Canvas) LineTo(x, y float64) {
	c.dc.LineTo(c.pt(x, y))
}

func (c *Canvas) QuadraticTo(cx, cy, x, y float64) {
	sx, sy := c.pt(cx, cy)
	ex, ey := c.pt(x, y)
	c.dc.QuadraticTo(sx, sy, ex, ey)
}

func (c *Canvas) Arc(x, y, r, a0, a1 float64) {
	sx, sy := c.pt(x, y)
	c.dc.DrawArc(sx, sy, r*c.scale, a0, a1)
}

func (c *Canvas) RoundedRect(x, y, w, h, r float64) {
	sx, sy := c.pt(x, y)
	c.dc.DrawRoundedRectangle(sx, sy, w*c.scale, h*c.scale, r*c.scale)
}

func (c *Canvas) ClosePath() { c.dc.ClosePath() }

func (c *Canvas) Fill() {
	c.dc.SetColor(c.fill)
	c.dc.Fill()
}

func (c *Canvas) Stroke() {
	c.dc.SetColor(c.stroke)
	c.dc.SetLineWidth(math.Max(c.lineWidth*c.scale, 0.1))
	c.dc.Stroke()
}

// face returns the face for the current font size in screen pixels, or
// false when the text would be smaller than a pixel.
func (c *Canvas) face() (font.Face, bool) {
	px := int(math.Round(c.fontSize * c.scale))
	if px < 1 {
		return nil, false
	}
	px = min(px, maxFacePx)
	if f, ok := c.faces[px]; ok {
		return f, true
	}
	var f font.Face = basicfont.Face7x13
	if c.font != nil {
		if of, err := opentype.NewFace(c.font, &opentype.FaceOptions{
			Size:    float64(px),
			DPI:     72,
			Hinting: font.HintingNone,
		}); err == nil {
			f = of
		}
	}
	c.faces[px] = f
	return f, true
}

// MeasureText returns the width in world units.
func (c *Canvas) MeasureText(s string) float64 {
	f, ok := c.face()
	if !ok {
		// Sub-pixel text: estimate so label boxes stay proportional.
		return float64(len([]rune(s))) * c.fontSize * 0.55
	}
	c.dc.SetFontFace(f)
	w, _ := c.dc.MeasureString(s)
	return w / c.scale
}

func (c *Canvas) FillText(s string, x, y float64) {
	f, ok := c.face()
	if !ok {
		return
	}
	c.dc.SetFontFace(f)
	c.dc.SetColor(c.fill)
	sx, sy := c.pt(x, y)
	c.dc.DrawStringAnchored(s, sx, sy, 0.5, 0.35)
}

func (c *Canvas) DrawImage(img image.Image, x, y, w, h float64) {
	pw, ph := int(math.Round(w*c.scale)), int(math.Round(h*c.scale))
	if img == nil || pw < 1 || ph < 1 {
		return
	}
	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	sx, sy := c.pt(x, y)
	c.dc.DrawImage(dst, int(math.Round(sx)), int(math.Round(sy)))
}

// Image returns the rendered image.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the image as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := c.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
