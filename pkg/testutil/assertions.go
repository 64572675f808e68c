package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/spatial"
)

// AssertNoOverlap verifies that no two boxes intersect.
func AssertNoOverlap(t *testing.T, boxes map[string]spatial.Rect) {
	t.Helper()
	ids := make([]string, 0, len(boxes))
	for id := range boxes {
		ids = append(ids, id)
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if boxes[ids[i]].Intersects(boxes[ids[j]]) {
				t.Errorf("labels %s %+v and %s %+v overlap", ids[i], boxes[ids[i]], ids[j], boxes[ids[j]])
			}
		}
	}
}

// AssertLabelsNonEmpty verifies every scene node has a label.
func AssertLabelsNonEmpty(t *testing.T, s *scene.Scene) {
	t.Helper()
	for _, n := range s.Nodes {
		if n.Label == "" {
			t.Errorf("node %q has an empty label", n.ID)
		}
	}
}

// AssertPaintOrder verifies nodes are sorted by descending size, then id.
func AssertPaintOrder(t *testing.T, s *scene.Scene) {
	t.Helper()
	for i := 1; i < len(s.Nodes); i++ {
		a, b := s.Nodes[i-1], s.Nodes[i]
		if a.Size < b.Size || (a.Size == b.Size && a.ID > b.ID) {
			t.Errorf("paint order broken at %d: %s(%v) before %s(%v)", i, a.ID, a.Size, b.ID, b.Size)
		}
	}
}

// AssertCurvatureBalanced verifies every parallel group sums to zero and
// singletons are straight.
func AssertCurvatureBalanced(t *testing.T, s *scene.Scene) {
	t.Helper()
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, e := range s.Edges {
		sums[e.GroupKey] += e.Curvature
		counts[e.GroupKey]++
		if counts[e.GroupKey] == 1 && e.Curvature != 0 && groupSize(s, e.GroupKey) == 1 {
			t.Errorf("single edge %s has curvature %v", e.ID, e.Curvature)
		}
	}
	for k, sum := range sums {
		if math.Abs(sum) > 1e-9 {
			t.Errorf("group %q curvature sums to %v", k, sum)
		}
	}
}

func groupSize(s *scene.Scene, key string) int {
	n := 0
	for _, e := range s.Edges {
		if e.GroupKey == key {
			n++
		}
	}
	return n
}

type fileNode struct {
	ID   string `json:"id"`
	Data struct {
		Type    string `json:"type,omitempty"`
		Label   string `json:"label,omitempty"`
		Caption string `json:"caption,omitempty"`
	} `json:"data"`
}

type fileEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// WriteGraphFile writes g in the loader's JSON shape to dir/name and
// returns the path.
func WriteGraphFile(t *testing.T, dir, name string, g model.Graph) string {
	t.Helper()
	var doc struct {
		Nodes []fileNode `json:"nodes"`
		Edges []fileEdge `json:"edges"`
	}
	for _, n := range g.Nodes {
		var fn fileNode
		fn.ID = n.ID
		fn.Data.Type = string(n.Type)
		fn.Data.Label = n.Label
		fn.Data.Caption = n.Caption
		doc.Nodes = append(doc.Nodes, fn)
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, fileEdge{Source: e.Source, Target: e.Target, Label: e.Label})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	return path
}

// IDs returns the node ids of g in input order.
func IDs(g model.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}
