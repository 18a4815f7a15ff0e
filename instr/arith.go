package instr

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
)

// BinaryOpcode selects the operation of a Binary instruction.
type BinaryOpcode string

// Binary opcodes.
const (
	OpAdd  BinaryOpcode = "add"
	OpSub  BinaryOpcode = "sub"
	OpAnd  BinaryOpcode = "and"
	OpOr   BinaryOpcode = "or"
	OpXor  BinaryOpcode = "xor"
	OpImul BinaryOpcode = "imul"
	OpCmp  BinaryOpcode = "cmp"
)

// Binary is a two-operand arithmetic instruction: Dst = Dst op Src. cmp only
// sets flags.
type Binary struct {
	Op       BinaryOpcode
	Dst, Src Operand
}

// Uses implements Instruction.
func (b Binary) Uses() []ir.Register {
	return operandRegisters(b.Dst, b.Src)
}

// Defines implements Instruction.
func (b Binary) Defines() []ir.Register {
	if b.Op == OpCmp {
		return nil
	}

	return definedBy(b.Dst)
}

// FallsThrough implements Instruction.
func (b Binary) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (b Binary) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (b Binary) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (b Binary) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return Binary{Op: b.Op, Dst: b.Dst.MapRegisters(regs), Src: b.Src.MapRegisters(regs)}
}

func (b Binary) String() string {
	return fmt.Sprintf("%s %s, %s", b.Op, b.Dst, b.Src)
}

// Clear zeroes a register.
type Clear struct {
	Reg ir.Register
}

// Uses implements Instruction.
func (c Clear) Uses() []ir.Register { return nil }

// Defines implements Instruction.
func (c Clear) Defines() []ir.Register { return []ir.Register{c.Reg} }

// FallsThrough implements Instruction.
func (c Clear) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (c Clear) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (c Clear) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (c Clear) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return Clear{Reg: mapRegister(regs, c.Reg)}
}

func (c Clear) String() string {
	return fmt.Sprintf("xor %s, %s", c.Reg, c.Reg)
}

// UnaryOpcode selects the operation of a Unary instruction.
type UnaryOpcode string

// Unary opcodes.
const (
	OpNot UnaryOpcode = "not"
	OpNeg UnaryOpcode = "neg"
)

// Unary rewrites a register in place.
type Unary struct {
	Op  UnaryOpcode
	Reg ir.Register
}

// Uses implements Instruction.
func (u Unary) Uses() []ir.Register { return []ir.Register{u.Reg} }

// Defines implements Instruction.
func (u Unary) Defines() []ir.Register { return []ir.Register{u.Reg} }

// FallsThrough implements Instruction.
func (u Unary) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (u Unary) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (u Unary) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (u Unary) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return Unary{Op: u.Op, Reg: mapRegister(regs, u.Reg)}
}

func (u Unary) String() string {
	return fmt.Sprintf("%s %s", u.Op, u.Reg)
}

// ConditionCode selects the flag condition of SetCC and JmpCC.
type ConditionCode string

// Condition codes.
const (
	CondE  ConditionCode = "e"
	CondNE ConditionCode = "ne"
	CondL  ConditionCode = "l"
	CondG  ConditionCode = "g"
	CondLE ConditionCode = "le"
	CondGE ConditionCode = "ge"
)

// SetCC writes 1 to the low byte of Reg if the condition holds, 0 otherwise.
// The upper bytes are kept, so the register is also read.
type SetCC struct {
	Cond ConditionCode
	Reg  ir.Register
}

// Uses implements Instruction.
func (s SetCC) Uses() []ir.Register { return []ir.Register{s.Reg} }

// Defines implements Instruction.
func (s SetCC) Defines() []ir.Register { return []ir.Register{s.Reg} }

// FallsThrough implements Instruction.
func (s SetCC) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (s SetCC) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (s SetCC) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (s SetCC) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return SetCC{Cond: s.Cond, Reg: mapRegister(regs, s.Reg)}
}

func (s SetCC) String() string {
	return fmt.Sprintf("set%s %s", s.Cond, s.Reg)
}

// Lea loads the address computed by Src into Dst.
type Lea struct {
	Dst ir.Register
	Src Mem
}

// Uses implements Instruction.
func (l Lea) Uses() []ir.Register { return l.Src.Registers() }

// Defines implements Instruction.
func (l Lea) Defines() []ir.Register { return []ir.Register{l.Dst} }

// FallsThrough implements Instruction.
func (l Lea) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (l Lea) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (l Lea) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (l Lea) MapRegisters(regs map[ir.Register]ir.Register) Instruction {
	return Lea{Dst: mapRegister(regs, l.Dst), Src: l.Src.MapRegisters(regs).(Mem)}
}

func (l Lea) String() string {
	return fmt.Sprintf("lea %s, %s", l.Dst, l.Src)
}
