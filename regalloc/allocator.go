// Package regalloc assigns physical registers to virtual registers by
// iterated register coalescing, and rewrites streams whose assignment is
// incomplete to keep the leftovers in stack slots.
package regalloc

import (
	"github.com/oleiade/lane"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/liveness"
)

// Builder can create allocators.
type Builder struct {
	palette []ir.HardwareRegister
	costs   map[ir.Register]int
}

// WithPalette sets the physical registers virtual registers may receive.
// Earlier registers are preferred.
func (b Builder) WithPalette(palette ...ir.HardwareRegister) Builder {
	b.palette = palette
	return b
}

// WithSpillCosts sets the cost of keeping each register in memory.
// Registers without an entry cost 1.
func (b Builder) WithSpillCosts(costs map[ir.Register]int) Builder {
	b.costs = costs
	return b
}

// Build creates an allocator.
func (b Builder) Build(name string) *Allocator {
	return &Allocator{
		name:    name,
		palette: append([]ir.HardwareRegister(nil), b.palette...),
		costs:   b.costs,
	}
}

// Allocator colors interference graphs with a fixed palette.
type Allocator struct {
	name    string
	palette []ir.HardwareRegister
	costs   map[ir.Register]int
}

// Name returns the name of the allocator.
func (a *Allocator) Name() string {
	return a.name
}

// Palette returns the registers the allocator hands out.
func (a *Allocator) Palette() []ir.HardwareRegister {
	return append([]ir.HardwareRegister(nil), a.palette...)
}

// Allocate colors the interference graph, merging the two sides of copy
// edges where that keeps the graph colorable. Physical registers in the
// graph keep their own color. Registers that cannot be colored are left
// unassigned.
func (a *Allocator) Allocate(interference, copies *liveness.Graph) *Allocation {
	c := newColoring(a, interference, copies)
	c.run()

	return c.result()
}

type moveState int

const (
	moveWorklist moveState = iota
	moveActive
	moveCoalesced
	moveConstrained
	moveFrozen
)

type move struct {
	a, b  ir.Register
	state moveState
}

type pair struct {
	a, b ir.Register
}

// worklist is a set that remembers insertion order.
type worklist struct {
	items []ir.Register
	in    map[ir.Register]bool
}

func newWorklist() *worklist {
	return &worklist{in: make(map[ir.Register]bool)}
}

func (w *worklist) add(r ir.Register) {
	if w.in[r] {
		return
	}
	w.in[r] = true
	w.items = append(w.items, r)
}

func (w *worklist) remove(r ir.Register) {
	if !w.in[r] {
		return
	}
	delete(w.in, r)
	for i, x := range w.items {
		if x == r {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}

func (w *worklist) has(r ir.Register) bool {
	return w.in[r]
}

func (w *worklist) empty() bool {
	return len(w.items) == 0
}

func (w *worklist) pop() ir.Register {
	r := w.items[len(w.items)-1]
	w.remove(r)
	return r
}

type coloring struct {
	k         int
	palette   []ir.HardwareRegister
	inPalette map[ir.HardwareRegister]bool
	costs     map[ir.Register]int

	nodes      []ir.Register
	precolored map[ir.Register]bool
	adjSet     map[pair]bool
	adjList    map[ir.Register][]ir.Register
	degree     map[ir.Register]int

	moves    []*move
	moveList map[ir.Register][]*move

	simplifyWorklist *worklist
	freezeWorklist   *worklist
	spillWorklist    *worklist

	coalesced   map[ir.Register]bool
	alias       map[ir.Register]ir.Register
	selectStack *lane.Stack
	onStack     map[ir.Register]bool
	color       map[ir.Register]ir.HardwareRegister
}

func newColoring(a *Allocator, interference, copies *liveness.Graph) *coloring {
	c := &coloring{
		k:                len(a.palette),
		palette:          a.palette,
		inPalette:        make(map[ir.HardwareRegister]bool),
		costs:            a.costs,
		precolored:       make(map[ir.Register]bool),
		adjSet:           make(map[pair]bool),
		adjList:          make(map[ir.Register][]ir.Register),
		degree:           make(map[ir.Register]int),
		moveList:         make(map[ir.Register][]*move),
		simplifyWorklist: newWorklist(),
		freezeWorklist:   newWorklist(),
		spillWorklist:    newWorklist(),
		coalesced:        make(map[ir.Register]bool),
		alias:            make(map[ir.Register]ir.Register),
		selectStack:      lane.NewStack(),
		onStack:          make(map[ir.Register]bool),
		color:            make(map[ir.Register]ir.HardwareRegister),
	}

	for _, h := range a.palette {
		c.inPalette[h] = true
	}

	c.build(interference, copies)
	c.makeWorklists()

	return c
}

func (c *coloring) addNode(r ir.Register) {
	if _, ok := c.degree[r]; ok {
		return
	}
	if _, ok := c.color[r]; ok {
		return
	}

	c.nodes = append(c.nodes, r)
	if h, ok := r.(ir.HardwareRegister); ok {
		c.precolored[r] = true
		c.color[r] = h
		return
	}
	c.degree[r] = 0
}

func (c *coloring) build(interference, copies *liveness.Graph) {
	for _, g := range []*liveness.Graph{interference, copies} {
		for _, r := range g.Nodes() {
			c.addNode(r)
		}
	}

	for _, u := range interference.Nodes() {
		for _, v := range interference.Neighbors(u) {
			c.addEdge(u, v)
		}
	}

	seen := make(map[pair]bool)
	for _, u := range copies.Nodes() {
		for _, v := range copies.Neighbors(u) {
			if seen[pair{v, u}] {
				continue
			}
			seen[pair{u, v}] = true

			if c.precolored[u] && c.precolored[v] {
				continue
			}

			m := &move{a: u, b: v, state: moveWorklist}
			c.moves = append(c.moves, m)
			c.moveList[u] = append(c.moveList[u], m)
			c.moveList[v] = append(c.moveList[v], m)
		}
	}
}

func (c *coloring) addEdge(u, v ir.Register) {
	if u == v || c.adjSet[pair{u, v}] {
		return
	}

	c.adjSet[pair{u, v}] = true
	c.adjSet[pair{v, u}] = true

	if !c.precolored[u] {
		c.adjList[u] = append(c.adjList[u], v)
		c.degree[u]++
	}
	if !c.precolored[v] {
		c.adjList[v] = append(c.adjList[v], u)
		c.degree[v]++
	}
}

func (c *coloring) makeWorklists() {
	for _, n := range c.nodes {
		if c.precolored[n] {
			continue
		}

		switch {
		case c.degree[n] >= c.k:
			c.spillWorklist.add(n)
		case c.moveRelated(n):
			c.freezeWorklist.add(n)
		default:
			c.simplifyWorklist.add(n)
		}
	}
}

func (c *coloring) adjacent(n ir.Register) []ir.Register {
	var out []ir.Register
	for _, m := range c.adjList[n] {
		if c.onStack[m] || c.coalesced[m] {
			continue
		}
		out = append(out, m)
	}

	return out
}

func (c *coloring) nodeMoves(n ir.Register) []*move {
	var out []*move
	for _, m := range c.moveList[n] {
		if m.state == moveActive || m.state == moveWorklist {
			out = append(out, m)
		}
	}

	return out
}

func (c *coloring) moveRelated(n ir.Register) bool {
	return len(c.nodeMoves(n)) > 0
}

func (c *coloring) nextMove() *move {
	for _, m := range c.moves {
		if m.state == moveWorklist {
			return m
		}
	}

	return nil
}

func (c *coloring) run() {
	for {
		switch {
		case !c.simplifyWorklist.empty():
			c.simplify()
		case c.nextMove() != nil:
			c.coalesce(c.nextMove())
		case !c.freezeWorklist.empty():
			c.freeze()
		case !c.spillWorklist.empty():
			c.selectSpill()
		default:
			c.assignColors()
			return
		}
	}
}

func (c *coloring) simplify() {
	n := c.simplifyWorklist.pop()
	c.selectStack.Push(n)
	c.onStack[n] = true

	for _, m := range c.adjacent(n) {
		c.decrementDegree(m)
	}
}

func (c *coloring) decrementDegree(m ir.Register) {
	if c.precolored[m] {
		return
	}

	d := c.degree[m]
	c.degree[m] = d - 1
	if d != c.k {
		return
	}

	c.enableMoves(append([]ir.Register{m}, c.adjacent(m)...))
	c.spillWorklist.remove(m)
	if c.moveRelated(m) {
		c.freezeWorklist.add(m)
	} else {
		c.simplifyWorklist.add(m)
	}
}

func (c *coloring) enableMoves(nodes []ir.Register) {
	for _, n := range nodes {
		for _, m := range c.nodeMoves(n) {
			if m.state == moveActive {
				m.state = moveWorklist
			}
		}
	}
}

func (c *coloring) getAlias(n ir.Register) ir.Register {
	for c.coalesced[n] {
		n = c.alias[n]
	}

	return n
}

func (c *coloring) coalesce(m *move) {
	x, y := c.getAlias(m.a), c.getAlias(m.b)
	u, v := x, y
	if c.precolored[y] {
		u, v = y, x
	}

	switch {
	case u == v:
		m.state = moveCoalesced
		c.addWorklist(u)
	case c.precolored[v] || c.adjSet[pair{u, v}] || c.precolored[u] && !c.inPalette[u.(ir.HardwareRegister)]:
		m.state = moveConstrained
		c.addWorklist(u)
		c.addWorklist(v)
	case c.precolored[u] && c.georgeSafe(u, v) ||
		!c.precolored[u] && c.briggsSafe(u, v):
		m.state = moveCoalesced
		c.combine(u, v)
		c.addWorklist(u)
	default:
		m.state = moveActive
	}
}

func (c *coloring) addWorklist(u ir.Register) {
	if c.precolored[u] || c.moveRelated(u) || c.degree[u] >= c.k {
		return
	}

	c.freezeWorklist.remove(u)
	c.simplifyWorklist.add(u)
}

// georgeSafe tells if every neighbor of v already conflicts with u or is
// of low degree.
func (c *coloring) georgeSafe(u, v ir.Register) bool {
	for _, t := range c.adjacent(v) {
		if c.degree[t] < c.k || c.precolored[t] || c.adjSet[pair{t, u}] {
			continue
		}
		return false
	}

	return true
}

// briggsSafe tells if the merged node would have fewer than k neighbors of
// significant degree.
func (c *coloring) briggsSafe(u, v ir.Register) bool {
	seen := make(map[ir.Register]bool)
	significant := 0

	for _, t := range append(c.adjacent(u), c.adjacent(v)...) {
		if seen[t] {
			continue
		}
		seen[t] = true

		if c.precolored[t] || c.degree[t] >= c.k {
			significant++
		}
	}

	return significant < c.k
}

func (c *coloring) combine(u, v ir.Register) {
	if c.freezeWorklist.has(v) {
		c.freezeWorklist.remove(v)
	} else {
		c.spillWorklist.remove(v)
	}

	c.coalesced[v] = true
	c.alias[v] = u
	c.moveList[u] = append(c.moveList[u], c.moveList[v]...)
	c.enableMoves([]ir.Register{v})

	for _, t := range c.adjacent(v) {
		c.addEdge(t, u)
		c.decrementDegree(t)
	}

	if c.degree[u] >= c.k && c.freezeWorklist.has(u) {
		c.freezeWorklist.remove(u)
		c.spillWorklist.add(u)
	}
}

func (c *coloring) freeze() {
	u := c.freezeWorklist.pop()
	c.simplifyWorklist.add(u)
	c.freezeMoves(u)
}

func (c *coloring) freezeMoves(u ir.Register) {
	for _, m := range c.nodeMoves(u) {
		v := c.getAlias(m.a)
		if v == c.getAlias(u) {
			v = c.getAlias(m.b)
		}

		m.state = moveFrozen

		if !c.precolored[v] && !c.moveRelated(v) && c.degree[v] < c.k &&
			c.freezeWorklist.has(v) {
			c.freezeWorklist.remove(v)
			c.simplifyWorklist.add(v)
		}
	}
}

func (c *coloring) cost(n ir.Register) int {
	if cost, ok := c.costs[n]; ok {
		return cost
	}

	return 1
}

// selectSpill picks the node with the lowest cost per neighbor, the first
// one on a tie.
func (c *coloring) selectSpill() {
	var pick ir.Register
	for _, n := range c.spillWorklist.items {
		if pick == nil ||
			c.cost(n)*c.degree[pick] < c.cost(pick)*c.degree[n] {
			pick = n
		}
	}

	c.spillWorklist.remove(pick)
	c.simplifyWorklist.add(pick)
	c.freezeMoves(pick)
}

func (c *coloring) assignColors() {
	for !c.selectStack.Empty() {
		n := c.selectStack.Pop().(ir.Register)
		delete(c.onStack, n)

		taken := make(map[ir.HardwareRegister]bool)
		for _, w := range c.adjList[n] {
			if h, ok := c.color[c.getAlias(w)]; ok {
				taken[h] = true
			}
		}

		for _, h := range c.palette {
			if !taken[h] {
				c.color[n] = h
				break
			}
		}
	}

	for _, n := range c.nodes {
		if !c.coalesced[n] {
			continue
		}
		if h, ok := c.color[c.getAlias(n)]; ok {
			c.color[n] = h
		}
	}
}

func (c *coloring) result() *Allocation {
	alloc := newAllocation()
	for _, n := range c.nodes {
		if h, ok := c.color[n]; ok {
			alloc.Assigned[n] = h
			continue
		}
		alloc.Unassigned = append(alloc.Unassigned, n)
	}

	return alloc
}
