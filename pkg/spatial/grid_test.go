package spatial

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlap", Rect{5, 5, 10, 10}, true},
		{"contained", Rect{2, 2, 2, 2}, true},
		{"touching edge", Rect{10, 0, 5, 5}, false},
		{"disjoint", Rect{20, 20, 1, 1}, false},
		{"vertical only", Rect{0, 11, 10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects(%v) = %v, want %v", tt.b, got, tt.want)
			}
			if got := tt.b.Intersects(a); got != tt.want {
				t.Errorf("Intersects is not symmetric for %v", tt.b)
			}
		})
	}
}

func TestGrid_InsertSpansCells(t *testing.T) {
	g := NewGrid(50)
	g.Insert(Box{Rect: Rect{X: 40, Y: 40, W: 20, H: 20}, Owner: "a"})
	if g.Cells() != 4 {
		t.Fatalf("box crossing a corner should land in 4 cells, got %d", g.Cells())
	}

	// A query touching only one of those cells still finds the box, once.
	got := g.Query(Rect{X: 55, Y: 55, W: 1, H: 1})
	if len(got) != 1 || got[0].Owner != "a" {
		t.Fatalf("Query = %+v, want single box owned by a", got)
	}
	got = g.Query(Rect{X: 0, Y: 0, W: 100, H: 100})
	if len(got) != 1 {
		t.Errorf("duplicated registrations leaked into query: %d results", len(got))
	}
}

func TestGrid_NegativeCoordinates(t *testing.T) {
	g := NewGrid(50)
	g.Insert(Box{Rect: Rect{X: -10, Y: -10, W: 5, H: 5}, Owner: "neg"})
	if got := g.Query(Rect{X: -8, Y: -8, W: 1, H: 1}); len(got) != 1 {
		t.Errorf("expected box in negative cell, got %d", len(got))
	}
	if got := g.Query(Rect{X: 5, Y: 5, W: 1, H: 1}); len(got) != 0 {
		t.Errorf("cell (0,0) should be empty, got %d", len(got))
	}
}

func TestGrid_RemoveByOwner(t *testing.T) {
	g := NewGrid(50)
	g.Insert(Box{Rect: Rect{X: 0, Y: 0, W: 120, H: 10}, Owner: "wide"})
	g.Insert(Box{Rect: Rect{X: 10, Y: 0, W: 10, H: 10}, Owner: "small"})

	if !g.RemoveByOwner("wide") {
		t.Fatal("RemoveByOwner reported nothing removed")
	}
	if g.Has("wide") {
		t.Error("owner still registered after removal")
	}
	got := g.Query(Rect{X: 0, Y: 0, W: 200, H: 20})
	if len(got) != 1 || got[0].Owner != "small" {
		t.Errorf("Query after removal = %+v", got)
	}
	if g.Cells() != 1 {
		t.Errorf("empty cells should be dropped, have %d", g.Cells())
	}
	if g.RemoveByOwner("wide") {
		t.Error("second removal should report false")
	}
}

func TestGrid_ClearAndDefaults(t *testing.T) {
	g := NewGrid(0)
	if g.CellSize() != DefaultCellSize {
		t.Errorf("CellSize = %v, want default", g.CellSize())
	}
	g.Insert(Box{Rect: Rect{W: 1, H: 1}, Owner: "a"})
	g.Insert(Box{Rect: Rect{X: math.NaN(), W: 1, H: 1}, Owner: "nan"})
	if g.Owners() != 1 {
		t.Errorf("NaN box should be ignored, owners = %d", g.Owners())
	}
	g.Clear()
	if g.Owners() != 0 || g.Cells() != 0 {
		t.Errorf("Clear left %d owners, %d cells", g.Owners(), g.Cells())
	}
}

// The broad phase must never miss a true overlap.
func TestGrid_QueryIsSupersetOfOverlaps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := NewGrid(rapid.Float64Range(5, 80).Draw(t, "cell"))
		genRect := func(label string) Rect {
			return Rect{
				X: rapid.Float64Range(-300, 300).Draw(t, label+".x"),
				Y: rapid.Float64Range(-300, 300).Draw(t, label+".y"),
				W: rapid.Float64Range(0.5, 150).Draw(t, label+".w"),
				H: rapid.Float64Range(0.5, 40).Draw(t, label+".h"),
			}
		}
		n := rapid.IntRange(1, 30).Draw(t, "n")
		boxes := make([]Box, n)
		for i := range boxes {
			boxes[i] = Box{Rect: genRect("box"), Owner: string(rune('a' + i))}
			g.Insert(boxes[i])
		}
		q := genRect("query")
		found := make(map[string]bool)
		for _, b := range g.Query(q) {
			found[b.Owner] = true
		}
		for _, b := range boxes {
			if b.Intersects(q) && !found[b.Owner] {
				t.Fatalf("overlapping box %+v missing from query %+v", b, q)
			}
		}
	})
}
