package instr

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
)

// Mov copies Src into Dst. At most one side may be a memory operand.
type Mov struct {
	Dst, Src Operand
}

// MovRR creates a register-to-register move.
func MovRR(dst, src ir.Register) Mov {
	return Mov{Dst: Reg{dst}, Src: Reg{src}}
}

// Uses implements Instruction.
func (m Mov) Uses() []ir.Register {
	return append(operandRegisters(m.Src), addressUses(m.Dst)...)
}

// Defines implements Instruction.
func (m Mov) Defines() []ir.Register {
	return definedBy(m.Dst)
}

// FallsThrough implements Instruction.
func (m Mov) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (m Mov) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (m Mov) IsCopy() bool {
	_, dstIsReg := m.Dst.(Reg)
	_, srcIsReg := m.Src.(Reg)
	return dstIsReg && srcIsReg
}

// MapRegisters implements Instruction.
func (m Mov) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return Mov{Dst: m.Dst.MapRegisters(regs), Src: m.Src.MapRegisters(regs)}
}

func (m Mov) String() string {
	return fmt.Sprintf("mov %s, %s", m.Dst, m.Src)
}

// IsNoop reports whether item is a move whose both sides resolve to the same
// register under mapping.
func IsNoop(item Item, mapping map[ir.Register]ir.HardwareRegister) bool {
	m, ok := item.(Mov)
	if !ok || !m.IsCopy() {
		return false
	}

	dst := m.Dst.(Reg).Register
	src := m.Src.(Reg).Register
	if dst == src {
		return true
	}

	d, dok := mapping[dst]
	s, sok := mapping[src]
	return dok && sok && d == s
}
