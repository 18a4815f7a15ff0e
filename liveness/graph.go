package liveness

import (
	"sort"

	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sarchlab/tilecc/ir"
)

// node is a register in a Graph. Its ID is the position at which the
// register was first added.
type node struct {
	id  int64
	reg ir.Register
}

func (n node) ID() int64     { return n.id }
func (n node) DOTID() string { return n.reg.String() }

// Graph is an undirected graph over registers without self loops. Nodes
// are kept in the order they were first added.
type Graph struct {
	g     *simple.UndirectedGraph
	nodes []ir.Register
	index map[ir.Register]int64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		g:     simple.NewUndirectedGraph(),
		index: make(map[ir.Register]int64),
	}
}

// AddNode adds r if it is not in the graph yet.
func (g *Graph) AddNode(r ir.Register) {
	if _, ok := g.index[r]; ok {
		return
	}

	id := int64(len(g.nodes))
	g.index[r] = id
	g.nodes = append(g.nodes, r)
	g.g.AddNode(node{id: id, reg: r})
}

// AddEdge connects a and b, adding them as nodes when needed. An edge from a
// register to itself is ignored.
func (g *Graph) AddEdge(a, b ir.Register) {
	g.AddNode(a)
	g.AddNode(b)

	if a == b {
		return
	}

	g.g.SetEdge(g.g.NewEdge(g.g.Node(g.index[a]), g.g.Node(g.index[b])))
}

// RemoveEdge disconnects a and b.
func (g *Graph) RemoveEdge(a, b ir.Register) {
	x, okA := g.index[a]
	y, okB := g.index[b]
	if !okA || !okB {
		return
	}

	g.g.RemoveEdge(x, y)
}

// HasNode tells if r is a node of the graph.
func (g *Graph) HasNode(r ir.Register) bool {
	_, ok := g.index[r]
	return ok
}

// HasEdge tells if a and b are connected.
func (g *Graph) HasEdge(a, b ir.Register) bool {
	x, okA := g.index[a]
	y, okB := g.index[b]
	if !okA || !okB {
		return false
	}

	return g.g.HasEdgeBetween(x, y)
}

// Nodes lists the registers of the graph in insertion order.
func (g *Graph) Nodes() []ir.Register {
	return append([]ir.Register(nil), g.nodes...)
}

// Neighbors lists the registers connected to r in insertion order.
func (g *Graph) Neighbors(r ir.Register) []ir.Register {
	id, ok := g.index[r]
	if !ok {
		return []ir.Register{}
	}

	var ids []int64
	for it := g.g.From(id); it.Next(); {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ir.Register, len(ids))
	for i, n := range ids {
		out[i] = g.nodes[n]
	}

	return out
}

// Degree returns the number of neighbors of r.
func (g *Graph) Degree(r ir.Register) int {
	id, ok := g.index[r]
	if !ok {
		return 0
	}

	return g.g.From(id).Len()
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Edges counts the undirected edges.
func (g *Graph) Edges() int {
	return g.g.Edges().Len()
}

// DOT renders the graph in Graphviz format.
func (g *Graph) DOT(name string) ([]byte, error) {
	return dot.Marshal(g.g, name, "", "  ")
}
