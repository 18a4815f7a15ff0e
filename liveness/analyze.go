// Package liveness computes which registers are live across an instruction
// stream and derives the interference and copy graphs from it.
package liveness

import (
	"fmt"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// Result holds the graphs built from one stream.
type Result struct {
	// Interference connects registers that are live at the same time.
	Interference *Graph

	// Copies connects the two sides of register-to-register moves that do
	// not interfere.
	Copies *Graph

	// Occurrences counts how often each register is read or written.
	Occurrences map[ir.Register]int
}

type registerSet map[ir.Register]struct{}

func (s registerSet) add(r ir.Register) bool {
	if _, ok := s[r]; ok {
		return false
	}

	s[r] = struct{}{}

	return true
}

func (s registerSet) has(r ir.Register) bool {
	_, ok := s[r]
	return ok
}

type point struct {
	in, out registerSet
	next    []int
}

// Analyze runs the analysis over a stream of labels and instructions.
func Analyze(items []instr.Item) *Result {
	res := &Result{
		Interference: NewGraph(),
		Copies:       NewGraph(),
		Occurrences:  make(map[ir.Register]int),
	}

	for _, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		for _, r := range instr.Registers(i) {
			res.Interference.AddNode(r)
			res.Copies.AddNode(r)
		}

		for _, r := range i.Uses() {
			res.Occurrences[r]++
		}
		for _, r := range i.Defines() {
			res.Occurrences[r]++
		}
	}

	points := flow(items)
	solve(items, points)
	buildGraphs(items, points, res)

	return res
}

func flow(items []instr.Item) []point {
	labels := make(map[ir.Label]int)
	for idx, item := range items {
		if l, ok := item.(ir.Label); ok {
			labels[l] = idx
		}
	}

	points := make([]point, len(items))
	for idx, item := range items {
		p := &points[idx]
		p.in = make(registerSet)
		p.out = make(registerSet)

		switch item := item.(type) {
		case ir.Label:
			if idx+1 < len(items) {
				p.next = append(p.next, idx+1)
			}
		case instr.Instruction:
			if item.FallsThrough() && idx+1 < len(items) {
				p.next = append(p.next, idx+1)
			}

			if target, ok := item.JumpTarget(); ok {
				at, found := labels[target]
				if !found {
					panic(fmt.Sprintf("jump to unknown label %s in %q", target, item))
				}
				p.next = append(p.next, at)
			}
		default:
			panic(fmt.Sprintf("unknown stream item %T", item))
		}
	}

	return points
}

func solve(items []instr.Item, points []point) {
	for changed := true; changed; {
		changed = false

		for idx := len(items) - 1; idx >= 0; idx-- {
			p := &points[idx]

			for _, n := range p.next {
				for r := range points[n].in {
					if p.out.add(r) {
						changed = true
					}
				}
			}

			var defs, uses []ir.Register
			if i, ok := items[idx].(instr.Instruction); ok {
				defs, uses = i.Defines(), i.Uses()
			}

			for r := range p.out {
				if contains(defs, r) {
					continue
				}
				if p.in.add(r) {
					changed = true
				}
			}

			for _, r := range uses {
				if p.in.add(r) {
					changed = true
				}
			}
		}
	}
}

func buildGraphs(items []instr.Item, points []point, res *Result) {
	for idx, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		var source ir.Register
		if i.IsCopy() {
			source = i.Uses()[0]
			res.Copies.AddEdge(i.Defines()[0], source)
		}

		for _, d := range i.Defines() {
			for _, l := range orderedLive(points[idx].out, res.Interference) {
				if l == d {
					continue
				}

				if source != nil && l == source {
					continue
				}

				res.Interference.AddEdge(d, l)
			}
		}
	}

	for _, a := range res.Copies.Nodes() {
		for _, b := range res.Copies.Neighbors(a) {
			if res.Interference.HasEdge(a, b) {
				res.Copies.RemoveEdge(a, b)
			}
		}
	}
}

func orderedLive(live registerSet, g *Graph) []ir.Register {
	out := make([]ir.Register, 0, len(live))
	for _, r := range g.Nodes() {
		if live.has(r) {
			out = append(out, r)
		}
	}

	return out
}

func contains(regs []ir.Register, r ir.Register) bool {
	for _, x := range regs {
		if x == r {
			return true
		}
	}

	return false
}
