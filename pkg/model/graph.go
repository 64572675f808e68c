// Package model defines the investigation graph handed to the renderer:
// entity nodes, relationship edges and the small value types shared by the
// rendering packages.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DisplayType is the entity category of a node. It drives icon lookup and
// color resolution; the renderer attaches no other meaning to it.
type DisplayType string

// Entity categories commonly found in investigation graphs.
const (
	TypeIndividual   DisplayType = "individual"
	TypeOrganization DisplayType = "organization"
	TypeEmail        DisplayType = "email"
	TypePhone        DisplayType = "phone"
	TypeAddress      DisplayType = "address"
	TypeSocial       DisplayType = "social_account"
	TypeUsername     DisplayType = "username"
	TypeDomain       DisplayType = "domain"
	TypeIP           DisplayType = "ip"
	TypeWebsite      DisplayType = "website"
	TypeUnknown      DisplayType = "unknown"
)

// KnownTypes lists the built-in entity categories in display order.
var KnownTypes = []DisplayType{
	TypeIndividual, TypeOrganization, TypeEmail, TypePhone, TypeAddress,
	TypeSocial, TypeUsername, TypeDomain, TypeIP, TypeWebsite,
}

// Normalize lowercases and trims the type, mapping empty to TypeUnknown.
func (t DisplayType) Normalize() DisplayType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	if s == "" {
		return TypeUnknown
	}
	return DisplayType(s)
}

// Point is a 2D position in graph space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Node is a graph entity as delivered by a data provider.
type Node struct {
	ID      string      `json:"id"`
	Type    DisplayType `json:"type"`
	Label   string      `json:"label,omitempty"`
	Caption string      `json:"caption,omitempty"`

	// Position is an optional seed position. Once the simulation starts it
	// owns positions and this field is ignored.
	Position *Point `json:"position,omitempty"`
}

// DisplayLabel resolves the text shown under the node: label, then
// caption, then the id. The result is never empty for a valid node.
func (n Node) DisplayLabel() string {
	if s := strings.TrimSpace(n.Label); s != "" {
		return s
	}
	if s := strings.TrimSpace(n.Caption); s != "" {
		return s
	}
	return n.ID
}

// Edge is a relationship between two nodes. Source and Target are node ids;
// the edge does not own the nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// ID derives the edge id from its endpoints. Both ids are quoted, so node
// ids containing "->" cannot make two endpoint pairs collide. It is only
// unique within one rendering pass once the parallel index is appended
// (see scene).
func (e Edge) ID() string {
	return strconv.Quote(e.Source) + "->" + strconv.Quote(e.Target)
}

// GroupKey identifies the parallel-edge group. Edges are directed, so the
// ordered pair is used.
func (e Edge) GroupKey() string {
	return e.Source + "\x00" + e.Target
}

// Graph is the node/edge batch produced by a load or refetch. It is
// replaced wholesale; nothing mutates it in place.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Validation errors.
var (
	ErrEmptyID     = errors.New("node id is empty")
	ErrDuplicateID = errors.New("duplicate node id")
	ErrDangling    = errors.New("edge references unknown node")
)

// Validate checks id uniqueness and edge endpoints. Loaders use Sanitize
// instead when they prefer dropping bad entries to failing.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: %w", i, ErrEmptyID)
		}
		if seen[n.ID] {
			return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = true
	}
	for i, e := range g.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return fmt.Errorf("edge %d (%s): %w", i, e.ID(), ErrDangling)
		}
	}
	return nil
}

// Sanitize drops nodes without ids, keeps the first of duplicate ids and
// drops edges with unknown endpoints. It returns the cleaned graph and a
// human-readable warning per dropped entry.
func (g Graph) Sanitize() (Graph, []string) {
	var warnings []string
	out := Graph{
		Nodes: make([]Node, 0, len(g.Nodes)),
		Edges: make([]Edge, 0, len(g.Edges)),
	}
	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" {
			warnings = append(warnings, fmt.Sprintf("node %d dropped: empty id", i))
			continue
		}
		if seen[n.ID] {
			warnings = append(warnings, fmt.Sprintf("node %q dropped: duplicate id", n.ID))
			continue
		}
		seen[n.ID] = true
		n.Type = n.Type.Normalize()
		out.Nodes = append(out.Nodes, n)
	}
	for _, e := range g.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			warnings = append(warnings, fmt.Sprintf("edge %s dropped: unknown endpoint", e.ID()))
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out, warnings
}
