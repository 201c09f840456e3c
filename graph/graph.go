package graph

import (
	"fmt"
	"sort"
)

// EdgeKind enumerates the typed relations of the heterogeneous graph.
// Containment edges form a forest rooted at packages; the remaining kinds
// may be cyclic.
type EdgeKind int

const (
	ContainsPackage EdgeKind = iota
	ContainsClass
	ContainsMethod
	ContainsField
	ContainsParameter
	Inherits
	Implements
	Invokes
	FieldRef
)

// EdgeKinds lists all edge kinds in declaration order.
var EdgeKinds = []EdgeKind{
	ContainsPackage, ContainsClass, ContainsMethod, ContainsField,
	ContainsParameter, Inherits, Implements, Invokes, FieldRef,
}

func (k EdgeKind) String() string {
	switch k {
	case ContainsPackage:
		return "contains_package"
	case ContainsClass:
		return "contains_class"
	case ContainsMethod:
		return "contains_method"
	case ContainsField:
		return "contains_field"
	case ContainsParameter:
		return "contains_parameter"
	case Inherits:
		return "inherits"
	case Implements:
		return "implements"
	case Invokes:
		return "invokes"
	case FieldRef:
		return "field_ref"
	}
	return "unknown"
}

// IsContainment reports whether the edge kind is a structural parent->child
// relation.
func (k EdgeKind) IsContainment() bool {
	switch k {
	case ContainsPackage, ContainsClass, ContainsMethod, ContainsField, ContainsParameter:
		return true
	}
	return false
}

// Edge is one typed directed edge.
type Edge struct {
	Src  string
	Dst  string
	Kind EdgeKind
}

// Graph is a typed directed multigraph over the five program node kinds.
// Adding an edge whose endpoint is absent is rejected with an error; adding
// an existing edge is a no-op.
type Graph struct {
	nodes     map[string]*Node
	out       map[string]map[EdgeKind][]string
	in        map[string]map[EdgeKind][]string
	edgeSet   map[Edge]bool
	kindCount map[NodeKind]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     map[string]*Node{},
		out:       map[string]map[EdgeKind][]string{},
		in:        map[string]map[EdgeKind][]string{},
		edgeSet:   map[Edge]bool{},
		kindCount: map[NodeKind]int{},
	}
}

// AddNode inserts a node; re-adding an existing id replaces its attributes.
func (g *Graph) AddNode(node *Node) {
	if prev, ok := g.nodes[node.ID]; ok {
		g.kindCount[prev.Kind]--
	}
	g.nodes[node.ID] = node
	g.kindCount[node.Kind]++
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) bool {
	node, ok := g.nodes[id]
	if !ok {
		return false
	}
	for kind, dsts := range g.out[id] {
		for _, dst := range dsts {
			delete(g.edgeSet, Edge{Src: id, Dst: dst, Kind: kind})
			g.in[dst][kind] = removeString(g.in[dst][kind], id)
		}
	}
	for kind, srcs := range g.in[id] {
		for _, src := range srcs {
			delete(g.edgeSet, Edge{Src: src, Dst: id, Kind: kind})
			g.out[src][kind] = removeString(g.out[src][kind], id)
		}
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	g.kindCount[node.Kind]--
	return true
}

// Node retrieves a node by id.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// HasNode reports whether the node id is present.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge inserts a typed edge between existing nodes. Re-adding an
// existing edge is a no-op; a missing endpoint is an error.
func (g *Graph) AddEdge(src, dst string, kind EdgeKind) error {
	if !g.HasNode(src) {
		return fmt.Errorf("edge %s: source node %s not in graph", kind, src)
	}
	if !g.HasNode(dst) {
		return fmt.Errorf("edge %s: destination node %s not in graph", kind, dst)
	}
	edge := Edge{Src: src, Dst: dst, Kind: kind}
	if g.edgeSet[edge] {
		return nil
	}
	g.edgeSet[edge] = true
	if g.out[src] == nil {
		g.out[src] = map[EdgeKind][]string{}
	}
	if g.in[dst] == nil {
		g.in[dst] = map[EdgeKind][]string{}
	}
	g.out[src][kind] = append(g.out[src][kind], dst)
	g.in[dst][kind] = append(g.in[dst][kind], src)
	return nil
}

// RemoveEdge deletes a typed edge if present.
func (g *Graph) RemoveEdge(src, dst string, kind EdgeKind) bool {
	edge := Edge{Src: src, Dst: dst, Kind: kind}
	if !g.edgeSet[edge] {
		return false
	}
	delete(g.edgeSet, edge)
	g.out[src][kind] = removeString(g.out[src][kind], dst)
	g.in[dst][kind] = removeString(g.in[dst][kind], src)
	return true
}

// HasEdge reports whether the typed edge is present.
func (g *Graph) HasEdge(src, dst string, kind EdgeKind) bool {
	return g.edgeSet[Edge{Src: src, Dst: dst, Kind: kind}]
}

// Neighbors returns the destination ids of edges of the given kind leaving
// the node.
func (g *Graph) Neighbors(id string, kind EdgeKind) []string {
	return g.out[id][kind]
}

// Predecessors returns the source ids of edges of the given kind entering
// the node.
func (g *Graph) Predecessors(id string, kind EdgeKind) []string {
	return g.in[id][kind]
}

// OutDegree returns the number of outgoing edges of the given kind.
func (g *Graph) OutDegree(id string, kind EdgeKind) int {
	return len(g.out[id][kind])
}

// InDegree returns the number of incoming edges of the given kind.
func (g *Graph) InDegree(id string, kind EdgeKind) int {
	return len(g.in[id][kind])
}

// ContainmentParent returns the containment parent of a node, following the
// single incoming containment edge. The second result is false for roots
// (packages without a parent package) and unknown ids.
func (g *Graph) ContainmentParent(id string) (string, bool) {
	for _, kind := range EdgeKinds {
		if !kind.IsContainment() {
			continue
		}
		if srcs := g.in[id][kind]; len(srcs) > 0 {
			return srcs[0], true
		}
	}
	return "", false
}

// NodesByKind returns all nodes of one kind in deterministic id order.
func (g *Graph) NodesByKind(kind NodeKind) []*Node {
	var out []*Node
	for _, node := range g.nodes {
		if node.Kind == kind {
			out = append(out, node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeCount returns the number of nodes of one kind.
func (g *Graph) NodeCount(kind NodeKind) int {
	return g.kindCount[kind]
}

// TotalNodes returns the number of nodes of all kinds.
func (g *Graph) TotalNodes() int {
	return len(g.nodes)
}

// Edges returns all edges in deterministic order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeSet))
	for edge := range g.edgeSet {
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		if out[i].Dst != out[j].Dst {
			return out[i].Dst < out[j].Dst
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// NodeIDs returns all node ids in sorted order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the graph. Perturbations mutate the clone so
// the pre-perturbation graph stays valid for comparison until the mutation
// is accepted.
func (g *Graph) Clone() *Graph {
	out := New()
	for _, node := range g.nodes {
		copied := *node
		out.AddNode(&copied)
	}
	for edge := range g.edgeSet {
		_ = out.AddEdge(edge.Src, edge.Dst, edge.Kind)
	}
	return out
}

func removeString(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
