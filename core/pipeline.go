// Package core runs the per-function part of the backend: compression,
// instruction selection, linearization, and register allocation.
package core

import (
	"github.com/sarchlab/tilecc/cfg"
	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/cover"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/linearize"
	"github.com/sarchlab/tilecc/liveness"
	"github.com/sarchlab/tilecc/regalloc"
)

// Backend compiles function bodies for one catalogue and target.
type Backend struct {
	name      string
	catalogue *isa.ISA
	target    *config.Target
}

// Result is the outcome of compiling one function.
type Result struct {
	// Items is the instruction stream over the original registers, with
	// moves that became no-ops removed.
	Items []instr.Item

	// Allocated is the stream the mapping was computed for, no-op moves
	// included.
	Allocated []instr.Item

	// Mapping assigns a physical register to every register of Items.
	Mapping *regalloc.Allocation

	// Spilled lists the registers that were moved to the stack.
	Spilled []ir.Register
}

// Physical returns the stream with the mapping applied.
func (r *Result) Physical() []instr.Item {
	return r.Mapping.Apply(r.Items)
}

// Name returns the name of the backend.
func (b *Backend) Name() string {
	return b.name
}

// ISA returns the rule catalogue of the backend.
func (b *Backend) ISA() *isa.ISA {
	return b.catalogue
}

// Target returns the register set of the backend.
func (b *Backend) Target() *config.Target {
	return b.target
}

// Compile translates the graph rooted at body. The stream starts with the
// label of f unless it is ir.NoLabel. Spill slots are allocated in f.
func (b *Backend) Compile(body ir.Block, f *frame.Frame) *Result {
	name := string(f.Label())

	root := cfg.Compress(body)
	Trace("Compress", "Backend", b.name, "Function", name,
		"Blocks", len(ir.Reachable(root)))

	covering := cover.New(b.catalogue)
	items := linearize.New(covering).Linearize(root, f.Label())
	Trace("Linearize", "Backend", b.name, "Function", name,
		"Items", len(items))
	PrintStream(name, items)

	lv := liveness.Analyze(items)
	Trace("Liveness", "Backend", b.name, "Function", name,
		"Registers", lv.Interference.Len(),
		"Interference", lv.Interference.Edges(),
		"Copies", lv.Copies.Edges())
	PrintLiveness(name, lv)

	alloc := regalloc.Builder{}.
		WithPalette(b.target.Palette...).
		WithSpillCosts(lv.Occurrences).
		Build(b.name + ".Full").
		Allocate(lv.Interference, lv.Copies)
	Trace("Allocate", "Backend", b.name, "Function", name,
		"Palette", len(b.target.Palette), "Unassigned", len(alloc.Unassigned))

	var spilled []ir.Register
	if !alloc.Complete() {
		alloc = regalloc.Builder{}.
			WithPalette(b.target.Reduced()...).
			WithSpillCosts(lv.Occurrences).
			Build(b.name + ".Reduced").
			Allocate(lv.Interference, lv.Copies)
		spilled = alloc.Unassigned
		Trace("Allocate", "Backend", b.name, "Function", name,
			"Palette", len(b.target.Reduced()), "Unassigned", len(spilled))

		items, alloc = regalloc.NewSpiller(covering, b.target.Scratch).
			Spill(items, alloc, f)
		Trace("Spill", "Backend", b.name, "Function", name,
			"Slots", f.Slots(), "Items", len(items))
	}

	kept := dropNoops(items, alloc)
	Trace("Finish", "Backend", b.name, "Function", name,
		"Items", len(kept), "Dropped", len(items)-len(kept))
	PrintAllocation(name, alloc, registersOf(kept))

	return &Result{Items: kept, Allocated: items, Mapping: alloc, Spilled: spilled}
}

func dropNoops(items []instr.Item, alloc *regalloc.Allocation) []instr.Item {
	out := make([]instr.Item, 0, len(items))
	for _, item := range items {
		if instr.IsNoop(item, alloc.Assigned) {
			continue
		}
		out = append(out, item)
	}

	return out
}
