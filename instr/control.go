package instr

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
)

// Jmp transfers control unconditionally.
type Jmp struct {
	Target ir.Label
}

// Uses implements Instruction.
func (j Jmp) Uses() []ir.Register { return nil }

// Defines implements Instruction.
func (j Jmp) Defines() []ir.Register { return nil }

// FallsThrough implements Instruction.
func (j Jmp) FallsThrough() bool { return false }

// JumpTarget implements Instruction.
func (j Jmp) JumpTarget() (ir.Label, bool) { return j.Target, true }

// IsCopy implements Instruction.
func (j Jmp) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (j Jmp) MapRegisters(map[ir.Register]ir.Register) Instruction { return j }

func (j Jmp) String() string {
	return fmt.Sprintf("jmp %s", j.Target)
}

// JmpCC transfers control when the condition holds and falls through
// otherwise.
type JmpCC struct {
	Cond   ConditionCode
	Target ir.Label
}

// Uses implements Instruction.
func (j JmpCC) Uses() []ir.Register { return nil }

// Defines implements Instruction.
func (j JmpCC) Defines() []ir.Register { return nil }

// FallsThrough implements Instruction.
func (j JmpCC) FallsThrough() bool { return true }

// JumpTarget implements Instruction.
func (j JmpCC) JumpTarget() (ir.Label, bool) { return j.Target, true }

// IsCopy implements Instruction.
func (j JmpCC) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (j JmpCC) MapRegisters(map[ir.Register]ir.Register) Instruction { return j }

func (j JmpCC) String() string {
	return fmt.Sprintf("j%s %s", j.Cond, j.Target)
}

// Call invokes a function. Arguments are the registers the callee reads and
// Clobbers the registers it may overwrite.
type Call struct {
	Target    ir.Label
	Arguments []ir.Register
	Clobbers  []ir.Register
}

// Uses implements Instruction.
func (c Call) Uses() []ir.Register { return c.Arguments }

// Defines implements Instruction.
func (c Call) Defines() []ir.Register { return c.Clobbers }

// FallsThrough implements Instruction.
func (c Call) FallsThrough() bool { return true }

// JumpTarget implements Instruction. The callee is not part of the stream.
func (c Call) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (c Call) IsCopy() bool { return false }

// MapRegisters implements Instruction. Argument and clobber lists hold
// physical registers only.
func (c Call) MapRegisters(map[ir.Register]ir.Register) Instruction { return c }

func (c Call) String() string {
	return fmt.Sprintf("call %s", c.Target)
}

// Ret returns to the caller. Results lists the registers that carry the
// returned value.
type Ret struct {
	Results []ir.Register
}

// Uses implements Instruction.
func (r Ret) Uses() []ir.Register { return r.Results }

// Defines implements Instruction.
func (r Ret) Defines() []ir.Register { return nil }

// FallsThrough implements Instruction.
func (r Ret) FallsThrough() bool { return false }

// JumpTarget implements Instruction.
func (r Ret) JumpTarget() (ir.Label, bool) { return ir.NoLabel, false }

// IsCopy implements Instruction.
func (r Ret) IsCopy() bool { return false }

// MapRegisters implements Instruction.
func (r Ret) MapRegisters(map[ir.Register]ir.Register) Instruction { return r }

func (r Ret) String() string {
	return "ret"
}
