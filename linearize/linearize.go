// Package linearize flattens a control-flow graph into one instruction
// stream.
package linearize

import (
	"fmt"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// Coverer selects instructions for single blocks.
type Coverer interface {
	CoverSequence(b *ir.SequentialBlock, next ir.Label) []instr.Instruction
	CoverBranch(b *ir.BranchBlock, trueLabel, falseLabel ir.Label) []instr.Instruction
}

// Linearizator walks a graph depth first and emits every reachable block
// once, with a label in front of each block that something jumps to.
type Linearizator struct {
	covering Coverer
}

// New creates a Linearizator that covers blocks with covering.
func New(covering Coverer) *Linearizator {
	return &Linearizator{covering: covering}
}

type walk struct {
	covering Coverer
	labels   map[ir.Block]ir.Label
	visited  map[ir.Block]bool
	out      []instr.Item
}

// Linearize flattens the graph rooted at root. When entry is not
// ir.NoLabel it names the root block and heads the stream.
func (l *Linearizator) Linearize(root ir.Block, entry ir.Label) []instr.Item {
	w := &walk{
		covering: l.covering,
		labels:   make(map[ir.Block]ir.Label),
		visited:  make(map[ir.Block]bool),
	}
	if entry != ir.NoLabel {
		w.labels[root] = entry
	}

	w.visit(root)

	if rootLabel, ok := w.labels[root]; ok {
		w.out = append([]instr.Item{rootLabel}, w.out...)
	}

	return w.out
}

func (w *walk) label(b ir.Block) ir.Label {
	if l, ok := w.labels[b]; ok {
		return l
	}

	l := ir.NewLabel()
	w.labels[b] = l

	return l
}

func (w *walk) emit(insts []instr.Instruction) {
	for _, i := range insts {
		w.out = append(w.out, i)
	}
}

func (w *walk) visit(b ir.Block) {
	w.visited[b] = true

	switch b := b.(type) {
	case *ir.SequentialBlock:
		if b.Next == nil {
			w.emit(w.covering.CoverSequence(b, ir.NoLabel))
			return
		}

		next := w.label(b.Next)
		w.emit(w.covering.CoverSequence(b, next))
		if w.visited[b.Next] {
			return
		}

		w.out = append(w.out, next)
		w.visit(b.Next)

	case *ir.BranchBlock:
		t, f := w.label(b.True), w.label(b.False)
		w.emit(w.covering.CoverBranch(b, t, f))

		for _, s := range []struct {
			block ir.Block
			label ir.Label
		}{{b.True, t}, {b.False, f}} {
			if w.visited[s.block] {
				continue
			}
			w.out = append(w.out, s.label)
			w.visit(s.block)
		}

	default:
		panic(fmt.Sprintf("unknown block variant %T", b))
	}
}
