package regalloc

import (
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// Allocation maps registers to the physical registers they live in.
type Allocation struct {
	// Assigned holds the registers that received a physical register.
	// Physical registers are assigned to themselves.
	Assigned map[ir.Register]ir.HardwareRegister

	// Unassigned lists, in graph order, the registers left without one.
	Unassigned []ir.Register
}

func newAllocation() *Allocation {
	return &Allocation{Assigned: make(map[ir.Register]ir.HardwareRegister)}
}

// Lookup returns the physical register r was assigned.
func (a *Allocation) Lookup(r ir.Register) (ir.HardwareRegister, bool) {
	h, ok := a.Assigned[r]
	return h, ok
}

// Complete tells if every register was assigned.
func (a *Allocation) Complete() bool {
	return len(a.Unassigned) == 0
}

// Mapping returns the assignment in the form instructions are rewritten
// with.
func (a *Allocation) Mapping() map[ir.Register]ir.Register {
	m := make(map[ir.Register]ir.Register, len(a.Assigned))
	for r, h := range a.Assigned {
		m[r] = h
	}

	return m
}

// Used lists the distinct physical registers of the assignment, in the
// order of candidates.
func (a *Allocation) Used(candidates []ir.HardwareRegister) []ir.HardwareRegister {
	taken := make(map[ir.HardwareRegister]bool)
	for _, h := range a.Assigned {
		taken[h] = true
	}

	var out []ir.HardwareRegister
	for _, h := range candidates {
		if taken[h] {
			out = append(out, h)
		}
	}

	return out
}

// Apply rewrites a stream with the assignment. Labels are kept.
func (a *Allocation) Apply(items []instr.Item) []instr.Item {
	m := a.Mapping()
	out := make([]instr.Item, 0, len(items))
	for _, item := range items {
		if i, ok := item.(instr.Instruction); ok {
			item = i.MapRegisters(m)
		}
		out = append(out, item)
	}

	return out
}
