package instr

import (
	"fmt"
	"strings"

	"github.com/sarchlab/tilecc/ir"
)

// Operand is an argument of an instruction.
type Operand interface {
	fmt.Stringer

	// Registers lists the registers the operand mentions.
	Registers() []ir.Register

	// MapRegisters returns a copy of the operand with registers replaced
	// according to m. Registers missing from m are kept.
	MapRegisters(m map[ir.Register]ir.Register) Operand
}

// Reg is a register operand.
type Reg struct {
	Register ir.Register
}

// Mem is a memory operand addressing [Base + BaseReg + Displacement]. Base
// and BaseReg are optional.
type Mem struct {
	Base         ir.Label
	BaseReg      ir.Register
	Displacement int64
}

// Imm is an immediate operand.
type Imm struct {
	Value int64
}

// Registers implements Operand.
func (o Reg) Registers() []ir.Register {
	return []ir.Register{o.Register}
}

// MapRegisters implements Operand.
func (o Reg) MapRegisters(m map[ir.Register]ir.Register) Operand {
	return Reg{Register: mapRegister(m, o.Register)}
}

func (o Reg) String() string {
	return o.Register.String()
}

// Registers implements Operand.
func (o Mem) Registers() []ir.Register {
	if o.BaseReg == nil {
		return nil
	}

	return []ir.Register{o.BaseReg}
}

// MapRegisters implements Operand.
func (o Mem) MapRegisters(m map[ir.Register]ir.Register) Operand {
	if o.BaseReg != nil {
		o.BaseReg = mapRegister(m, o.BaseReg)
	}

	return o
}

func (o Mem) String() string {
	var parts []string
	if o.Base != ir.NoLabel {
		parts = append(parts, string(o.Base))
	}
	if o.BaseReg != nil {
		parts = append(parts, o.BaseReg.String())
	}

	s := strings.Join(parts, " + ")
	switch {
	case s == "":
		s = fmt.Sprintf("%d", o.Displacement)
	case o.Displacement > 0:
		s += fmt.Sprintf(" + %d", o.Displacement)
	case o.Displacement < 0:
		s += fmt.Sprintf(" - %d", -o.Displacement)
	}

	return "qword [" + s + "]"
}

// Registers implements Operand.
func (o Imm) Registers() []ir.Register {
	return nil
}

// MapRegisters implements Operand.
func (o Imm) MapRegisters(map[ir.Register]ir.Register) Operand {
	return o
}

func (o Imm) String() string {
	return fmt.Sprintf("%d", o.Value)
}

func mapRegister(m map[ir.Register]ir.Register, r ir.Register) ir.Register {
	if mapped, ok := m[r]; ok {
		return mapped
	}

	return r
}

// IsMemory reports whether o is a memory operand.
func IsMemory(o Operand) bool {
	_, ok := o.(Mem)
	return ok
}

// RegisterOf returns the register of a register operand.
func RegisterOf(o Operand) (ir.Register, bool) {
	r, ok := o.(Reg)
	if !ok {
		return nil, false
	}

	return r.Register, true
}
