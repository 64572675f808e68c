package svgcanvas

import (
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/render"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
	"github.com/vanderheijden86/casegraph/pkg/viewport"
)

var _ render.Canvas = (*Canvas)(nil)

func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	d := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := d.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("invalid SVG: %v\n%s", err, doc)
		}
	}
}

func TestCanvas_Primitives(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 200, 100)
	c.Clear(color.White)
	c.SetTransform(2, 10, 20)
	c.SetFillColor(color.RGBA{0xff, 0, 0, 0xff})
	c.BeginPath()
	c.Arc(0, 0, 5, 0, 2*math.Pi)
	c.Fill()
	c.SetStrokeColor(color.NRGBA{0, 0, 0xff, 0x80})
	c.SetLineWidth(0.5)
	c.BeginPath()
	c.MoveTo(0, 0)
	c.QuadraticTo(5, -5, 10, 0)
	c.Stroke()
	c.SetFontSize(7)
	c.FillText("Alice & <Bob>", 3.25, 4)
	c.End()

	out := buf.String()
	wellFormed(t, buf.Bytes())
	for _, want := range []string{
		`matrix(2 0 0 2 10 20)`,
		`d="M5 0 A5 5 0 1 1 -5 0 A5 5 0 1 1 5 0"`,
		`fill:#ff0000`,
		`Q5 -5 10 0`,
		`stroke-width:0.5`,
		`stroke-opacity:0.502`,
		`translate(3.25 4)`,
		`Alice &amp; &lt;Bob&gt;`,
		`font-size:7px`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCanvas_MeasureTextScalesWithFont(t *testing.T) {
	c := New(io.Discard, 10, 10)
	c.SetFontSize(10)
	a := c.MeasureText("subject")
	c.SetFontSize(20)
	b := c.MeasureText("subject")
	if a <= 0 || math.Abs(b-2*a) > 1e-9 {
		t.Errorf("widths %v and %v", a, b)
	}
}

func TestCanvas_RoundedRectAndImage(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, 50, 50)
	c.BeginPath()
	c.RoundedRect(0, 0, 20, 10, 3)
	c.Fill()
	c.DrawImage(image.NewRGBA(image.Rect(0, 0, 4, 4)), 1, 1, 8, 8)
	c.End()
	out := buf.String()
	wellFormed(t, buf.Bytes())
	if !strings.Contains(out, "Z") || !strings.Contains(out, "data:image/png;base64,") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "scale(2 2)") {
		t.Errorf("image not scaled into its box:\n%s", out)
	}
}

func TestCanvas_PaintsWholeFrame(t *testing.T) {
	g := testutil.QuickInvestigation(3, 2)
	sc := scene.Build(g, scene.Options{})
	pts := testutil.Ring(testutil.IDs(g), 150)

	var buf bytes.Buffer
	c := New(&buf, 640, 480)
	cam := viewport.NewCamera(640, 480)
	st := render.NewPainter(render.NewSession(render.SessionOptions{}), render.LightTheme(), nil).
		Paint(c, render.Frame{Scene: sc, Positions: positions(pts), Camera: cam})
	c.End()

	wellFormed(t, buf.Bytes())
	if st.Nodes != len(g.Nodes) {
		t.Errorf("painted %d of %d nodes", st.Nodes, len(g.Nodes))
	}
	if n := strings.Count(buf.String(), "<path"); n < len(g.Nodes)+len(g.Edges) {
		t.Errorf("only %d paths", n)
	}
}

type positions map[string]model.Point

func (p positions) Snapshot() map[string]model.Point { return p }
