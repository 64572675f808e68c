// Package spatial provides a uniform-bucket spatial hash for broad-phase
// overlap queries over axis-aligned label rectangles.
//
// A box spanning several cells is registered in each of them. Queries
// return every box sharing a cell with the query rectangle; callers do the
// exact intersection test on that short list.
package spatial

import (
	"math"
	"sort"
)

// DefaultCellSize matches the typical label footprint.
const DefaultCellSize = 50.0

// Rect is an axis-aligned rectangle. X,Y is the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Intersects reports whether the two rectangles overlap with positive area.
// Rectangles that only share an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Box is a label rectangle owned by a node. Priority is the owner's glyph
// size and is only used for tie-breaking.
type Box struct {
	Rect
	Owner    string
	Priority float64
}

type cellKey struct {
	cx, cy int
}

// Grid is a uniform spatial hash. It is not safe for concurrent use; the
// render session serializes access.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]Box
	owners   map[string][]cellKey
}

// NewGrid returns an empty grid. Non-positive cell sizes fall back to
// DefaultCellSize.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]Box),
		owners:   make(map[string][]cellKey),
	}
}

// CellSize returns the grid's cell edge length.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// cellRange returns the inclusive cell index span of r.
func (g *Grid) cellRange(r Rect) (x0, y0, x1, y1 int) {
	x0 = int(math.Floor(r.X / g.cellSize))
	y0 = int(math.Floor(r.Y / g.cellSize))
	x1 = int(math.Floor((r.X + r.W) / g.cellSize))
	y1 = int(math.Floor((r.Y + r.H) / g.cellSize))
	return x0, y0, x1, y1
}

// Insert registers the box in every cell its rectangle spans.
func (g *Grid) Insert(b Box) {
	if !finite(b.Rect) {
		return
	}
	x0, y0, x1, y1 := g.cellRange(b.Rect)
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			k := cellKey{cx, cy}
			g.cells[k] = append(g.cells[k], b)
			g.owners[b.Owner] = append(g.owners[b.Owner], k)
		}
	}
}

// Query returns the distinct boxes registered in any cell spanned by r.
// The result is a candidate set; use Rect.Intersects for the exact test.
// Boxes are returned in a deterministic order (by owner).
func (g *Grid) Query(r Rect) []Box {
	if !finite(r) {
		return nil
	}
	x0, y0, x1, y1 := g.cellRange(r)
	var out []Box
	seen := make(map[Box]struct{})
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for _, b := range g.cells[cellKey{cx, cy}] {
				if _, ok := seen[b]; ok {
					continue
				}
				seen[b] = struct{}{}
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// RemoveByOwner drops every box owned by id from every bucket it appears in.
// It reports whether anything was removed.
func (g *Grid) RemoveByOwner(id string) bool {
	keys, ok := g.owners[id]
	if !ok {
		return false
	}
	for _, k := range keys {
		bucket := g.cells[k]
		kept := bucket[:0]
		for _, b := range bucket {
			if b.Owner != id {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = kept
		}
	}
	delete(g.owners, id)
	return true
}

// Has reports whether any box owned by id is registered.
func (g *Grid) Has(id string) bool {
	_, ok := g.owners[id]
	return ok
}

// Owners returns the number of distinct owners with registered boxes.
func (g *Grid) Owners() int {
	return len(g.owners)
}

// Cells returns the number of non-empty cells.
func (g *Grid) Cells() int {
	return len(g.cells)
}

// Clear empties all buckets.
func (g *Grid) Clear() {
	clear(g.cells)
	clear(g.owners)
}

func finite(r Rect) bool {
	for _, v := range [...]float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.W >= 0 && r.H >= 0
}
