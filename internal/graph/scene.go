// Package graph holds the canonical node and edge collection of a canvas.
//
// Every consumer looks nodes up by ID in a Scene. Edges keep references to
// nodes only as a cache that the Scene rebinds whenever a node moves, so an
// edge never reports a position the canonical node no longer has.
package graph

import (
	"sync/atomic"

	"agentscope/internal/domain"
)

type NodeKind string

const (
	NodeAgent NodeKind = "agent"
	NodeTool  NodeKind = "tool"
	NodeTest  NodeKind = "test"
)

type EdgeKind string

const (
	EdgeAgentTool  EdgeKind = "agent-tool"
	EdgeAgentAgent EdgeKind = "agent-agent"
	EdgeTestTarget EdgeKind = "test-target"
)

type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Label    string   `json:"label"`
	Position Point    `json:"position"`
	Size     Size     `json:"size"`
	// OwnerID is the agent a tool occurrence belongs to.
	OwnerID string `json:"owner_id,omitempty"`

	Agent *domain.Agent    `json:"-"`
	Tool  *domain.Tool     `json:"-"`
	Test  *domain.TestCase `json:"-"`
}

func (n *Node) Rect() Rect {
	return RectAt(n.Position, n.Size)
}

type Edge struct {
	ID           string               `json:"id"`
	Kind         EdgeKind             `json:"kind"`
	FromID       string               `json:"from"`
	ToID         string               `json:"to"`
	Relationship *domain.Relationship `json:"-"`
	Color        string               `json:"color,omitempty"`
	Marker       string               `json:"marker,omitempty"`

	from *Node
	to   *Node
}

// From returns the cached source node. It is only valid after the owning
// Scene has bound the edge.
func (e *Edge) From() *Node { return e.from }

func (e *Edge) To() *Node { return e.to }

var sceneVersions atomic.Uint64

type Scene struct {
	nodes    map[string]*Node
	order    []string
	edges    []*Edge
	byID     map[string]*Edge
	incident map[string][]*Edge
	version  uint64
}

// NewScene builds a scene from freshly derived nodes and edges. Duplicate node
// or edge IDs keep the first occurrence; edges with a missing endpoint are
// dropped.
func NewScene(nodes []*Node, edges []*Edge) *Scene {
	s := &Scene{
		nodes:    make(map[string]*Node, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		byID:     make(map[string]*Edge, len(edges)),
		incident: make(map[string][]*Edge, len(nodes)),
		version:  sceneVersions.Add(1),
	}
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, exists := s.nodes[n.ID]; exists {
			continue
		}
		s.nodes[n.ID] = n
		s.order = append(s.order, n.ID)
	}
	for _, e := range edges {
		if e == nil || e.ID == "" {
			continue
		}
		if _, exists := s.byID[e.ID]; exists {
			continue
		}
		if _, ok := s.nodes[e.FromID]; !ok {
			continue
		}
		if _, ok := s.nodes[e.ToID]; !ok {
			continue
		}
		s.edges = append(s.edges, e)
		s.byID[e.ID] = e
		s.incident[e.FromID] = append(s.incident[e.FromID], e)
		if e.ToID != e.FromID {
			s.incident[e.ToID] = append(s.incident[e.ToID], e)
		}
	}
	s.Refresh()
	return s
}

// Version identifies the node/edge identity set. It changes on every rebuild
// and never on a position change.
func (s *Scene) Version() uint64 { return s.version }

func (s *Scene) Len() int { return len(s.order) }

func (s *Scene) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns nodes in insertion order, which is also paint order.
func (s *Scene) Nodes() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *Scene) Edges() []*Edge {
	out := make([]*Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

func (s *Scene) Edge(id string) (*Edge, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// EdgesOf returns every edge touching the node, in either direction.
func (s *Scene) EdgesOf(id string) []*Edge {
	return s.incident[id]
}

// Neighbors returns the distinct 1-hop neighbor IDs of a node.
func (s *Scene) Neighbors(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	for _, e := range s.incident[id] {
		other := e.ToID
		if other == id {
			other = e.FromID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}

// MoveNode shifts one node in world space and rebinds the edges touching it.
func (s *Scene) MoveNode(id string, dx, dy float64) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.Position = n.Position.Add(dx, dy)
	s.refreshNode(id)
	return true
}

func (s *Scene) SetPosition(id string, p Point) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.Position = p
	s.refreshNode(id)
	return true
}

// Refresh rebinds every edge to the canonical node objects.
func (s *Scene) Refresh() {
	for _, e := range s.edges {
		e.from = s.nodes[e.FromID]
		e.to = s.nodes[e.ToID]
	}
}

func (s *Scene) refreshNode(id string) {
	n := s.nodes[id]
	for _, e := range s.incident[id] {
		if e.FromID == id {
			e.from = n
		}
		if e.ToID == id {
			e.to = n
		}
	}
}

// Bounds returns the bounding box of the given nodes, or of all nodes when no
// ID is given. Unknown IDs are ignored.
func (s *Scene) Bounds(ids ...string) (Rect, bool) {
	if len(ids) == 0 {
		ids = s.order
	}
	rects := make([]Rect, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			rects = append(rects, n.Rect())
		}
	}
	return Bounds(rects)
}

func (s *Scene) Positions() map[string]Point {
	out := make(map[string]Point, len(s.nodes))
	for id, n := range s.nodes {
		out[id] = n.Position
	}
	return out
}

// NodeAt returns the top-most node containing the world point.
func (s *Scene) NodeAt(p Point) (*Node, bool) {
	for i := len(s.order) - 1; i >= 0; i-- {
		n := s.nodes[s.order[i]]
		if n.Rect().Contains(p) {
			return n, true
		}
	}
	return nil, false
}

func (s *Scene) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, id := range s.order {
		if n := s.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
