package regalloc

import (
	"fmt"

	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// OperationCoverer turns IR operations into instructions.
type OperationCoverer interface {
	CoverOperations(ops []ir.Node) []instr.Instruction
}

// Spiller moves unassigned registers into stack slots. Each instruction
// that touches one goes through the scratch registers.
type Spiller struct {
	covering OperationCoverer
	scratch  []ir.HardwareRegister
}

// NewSpiller creates a Spiller that emits loads and stores with covering.
// The scratch registers must not be handed out by the allocation being
// completed.
func NewSpiller(covering OperationCoverer, scratch []ir.HardwareRegister) *Spiller {
	return &Spiller{
		covering: covering,
		scratch:  append([]ir.HardwareRegister(nil), scratch...),
	}
}

// Spill rewrites items so that no unassigned register of alloc remains and
// returns the rewritten stream with an assignment covering all of its
// registers. Slots are taken from f.
func (s *Spiller) Spill(
	items []instr.Item,
	alloc *Allocation,
	f *frame.Frame,
) ([]instr.Item, *Allocation) {
	slots := make(map[ir.Register]frame.Slot, len(alloc.Unassigned))
	for _, r := range alloc.Unassigned {
		slots[r] = f.AllocateSlot()
	}

	var out []instr.Item
	for _, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			out = append(out, item)
			continue
		}

		for _, rewritten := range s.rewrite(i, slots) {
			out = append(out, rewritten)
		}
	}

	return out, s.complete(out, alloc)
}

func (s *Spiller) rewrite(i instr.Instruction, slots map[ir.Register]frame.Slot) []instr.Instruction {
	var spilled []ir.Register
	for _, r := range instr.Registers(i) {
		if _, ok := slots[r]; ok {
			spilled = append(spilled, r)
		}
	}

	if len(spilled) == 0 {
		return []instr.Instruction{i}
	}

	if m, ok := i.(instr.Mov); ok {
		if direct, ok := s.direct(m, slots); ok {
			return direct
		}
	}

	if len(spilled) > len(s.scratch) {
		panic(fmt.Sprintf("%q touches %d spilled registers, only %d scratch registers",
			i, len(spilled), len(s.scratch)))
	}

	mapping := make(map[ir.Register]ir.Register, len(spilled))
	for k, r := range spilled {
		mapping[r] = s.scratch[k]
	}

	var out []instr.Instruction
	for _, r := range uniqueIn(i.Uses(), slots) {
		out = append(out, s.covering.CoverOperations([]ir.Node{
			ir.Write(mapping[r], slots[r].Read()),
		})...)
	}

	out = append(out, i.MapRegisters(mapping))

	for _, r := range uniqueIn(i.Defines(), slots) {
		out = append(out, s.covering.CoverOperations([]ir.Node{
			slots[r].Write(ir.Read(mapping[r])),
		})...)
	}

	return out
}

// direct turns a move between a spilled register and a register or an
// immediate into a single access of the slot.
func (s *Spiller) direct(m instr.Mov, slots map[ir.Register]frame.Slot) ([]instr.Instruction, bool) {
	spilledReg := func(o instr.Operand) (frame.Slot, bool) {
		r, ok := instr.RegisterOf(o)
		if !ok {
			return frame.Slot{}, false
		}
		slot, spilled := slots[r]
		return slot, spilled
	}

	dstSlot, dstSpilled := spilledReg(m.Dst)
	srcSlot, srcSpilled := spilledReg(m.Src)

	switch {
	case dstSpilled == srcSpilled:
		return nil, false

	case srcSpilled:
		dst, ok := instr.RegisterOf(m.Dst)
		if !ok {
			return nil, false
		}
		return s.covering.CoverOperations([]ir.Node{
			ir.Write(dst, srcSlot.Read()),
		}), true
	}

	var value ir.ValueNode
	switch src := m.Src.(type) {
	case instr.Imm:
		value = ir.Const(src.Value)
	case instr.Reg:
		value = ir.Read(src.Register)
	default:
		return nil, false
	}

	return s.covering.CoverOperations([]ir.Node{dstSlot.Write(value)}), true
}

func (s *Spiller) complete(items []instr.Item, alloc *Allocation) *Allocation {
	done := newAllocation()
	for r, h := range alloc.Assigned {
		done.Assigned[r] = h
	}

	for _, item := range items {
		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		for _, r := range instr.Registers(i) {
			if _, ok := done.Assigned[r]; ok {
				continue
			}

			h, ok := r.(ir.HardwareRegister)
			if !ok {
				panic(fmt.Sprintf("register %s of %q has no assignment", r, i))
			}
			done.Assigned[r] = h
		}
	}

	return done
}

func uniqueIn(regs []ir.Register, slots map[ir.Register]frame.Slot) []ir.Register {
	var out []ir.Register
	seen := make(map[ir.Register]bool)
	for _, r := range regs {
		if _, ok := slots[r]; !ok || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}

	return out
}
