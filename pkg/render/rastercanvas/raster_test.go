package rastercanvas

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/render"
)

var _ render.Canvas = (*Canvas)(nil)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestCanvas_FillCircleUnderTransform(t *testing.T) {
	c := New(100, 100)
	c.Clear(color.White)
	c.SetTransform(2, 50, 50)
	c.SetFillColor(color.RGBA{255, 0, 0, 255})
	c.BeginPath()
	c.Arc(0, 0, 10, 0, 2*math.Pi)
	c.Fill()

	img := c.Image()
	if got := rgba(img.At(50, 50)); got.R != 255 || got.G != 0 {
		t.Errorf("center pixel = %v, want red", got)
	}
	// Radius 10 world = 20 px, so (65,50) is inside and (75,50) outside.
	if got := rgba(img.At(65, 50)); got.G != 0 {
		t.Errorf("inside pixel = %v", got)
	}
	if got := rgba(img.At(75, 50)); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("outside pixel = %v, want white", got)
	}
}

func TestCanvas_MeasureTextInWorldUnits(t *testing.T) {
	c := New(200, 100)
	c.SetFontSize(12)
	c.SetTransform(1, 0, 0)
	w1 := c.MeasureText("investigation")
	c.SetTransform(2, 0, 0)
	c.SetFontSize(6)
	w2 := c.MeasureText("investigation")
	if w1 <= 0 {
		t.Fatalf("width = %v", w1)
	}
	// Same screen size at both zooms, so world widths differ by the scale.
	if math.Abs(w1-2*w2) > w1*0.1 {
		t.Errorf("world widths %v and %v do not track the scale", w1, w2)
	}
	c.SetFontSize(0.01)
	if c.MeasureText("abc") <= 0 {
		t.Error("sub-pixel text should still measure")
	}
}

func TestCanvas_DrawImageScales(t *testing.T) {
	icon := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range icon.Pix {
		icon.Pix[i] = 0xff
	}
	c := New(40, 40)
	c.Clear(color.Black)
	c.DrawImage(icon, 10, 10, 16, 16)
	if got := rgba(c.Image().At(18, 18)); got.R != 255 {
		t.Errorf("scaled icon pixel = %v", got)
	}
	if got := rgba(c.Image().At(5, 5)); got.R != 0 {
		t.Errorf("outside icon = %v", got)
	}
}

func TestCanvas_EncodePNG(t *testing.T) {
	c := New(32, 16)
	c.Clear(color.White)
	c.SetFontSize(10)
	c.SetFillColor(color.Black)
	c.FillText("hi", 16, 8)
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("bounds = %v", b)
	}
}
