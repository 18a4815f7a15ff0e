// Package instr defines the concrete machine instructions produced by
// instruction covering and rewritten by register allocation.
package instr

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tilecc/ir"
)

// Item is an element of a linear instruction stream: an Instruction or an
// ir.Label.
type Item interface {
	fmt.Stringer
}

// Instruction is a machine instruction over virtual or physical registers.
type Instruction interface {
	Item

	// Uses lists the registers read.
	Uses() []ir.Register

	// Defines lists the registers written.
	Defines() []ir.Register

	// FallsThrough reports whether execution may continue with the next
	// item of the stream.
	FallsThrough() bool

	// JumpTarget returns the label control may be transferred to.
	JumpTarget() (ir.Label, bool)

	// IsCopy reports whether the instruction is a register-to-register
	// move.
	IsCopy() bool

	// MapRegisters returns a copy of the instruction with registers
	// replaced according to m.
	MapRegisters(m map[ir.Register]ir.Register) Instruction
}

// Registers lists the distinct registers an instruction mentions, uses
// first.
func Registers(i Instruction) []ir.Register {
	var out []ir.Register
	seen := map[ir.Register]bool{}
	for _, group := range [][]ir.Register{i.Uses(), i.Defines()} {
		for _, r := range group {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}

	return out
}

// Format renders a stream one item per line, indenting instructions.
func Format(items []Item) string {
	var sb strings.Builder
	for _, item := range items {
		switch item := item.(type) {
		case ir.Label:
			sb.WriteString(string(item) + ":\n")
		case Instruction:
			sb.WriteString("    " + item.String() + "\n")
		default:
			panic(fmt.Sprintf("unknown stream item %T", item))
		}
	}

	return sb.String()
}

// Instructions drops the labels of a stream.
func Instructions(items []Item) []Instruction {
	var out []Instruction
	for _, item := range items {
		if i, ok := item.(Instruction); ok {
			out = append(out, i)
		}
	}

	return out
}

func operandRegisters(ops ...Operand) []ir.Register {
	var out []ir.Register
	for _, op := range ops {
		out = append(out, op.Registers()...)
	}

	return out
}

func definedBy(dst Operand) []ir.Register {
	if r, ok := dst.(Reg); ok {
		return []ir.Register{r.Register}
	}

	return nil
}

// addressUses lists the registers a destination operand reads: the base of
// a memory destination.
func addressUses(dst Operand) []ir.Register {
	if m, ok := dst.(Mem); ok {
		return m.Registers()
	}

	return nil
}
