package isa

import (
	"fmt"

	"github.com/mmcloughlin/avo/reg"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/pattern"
)

// AMD64Convention is the System V calling convention.
var AMD64Convention = Convention{
	Arguments: hardware(reg.RDI, reg.RSI, reg.RDX, reg.RCX, reg.R8, reg.R9),
	CallerSaved: hardware(reg.RAX, reg.RCX, reg.RDX, reg.RSI, reg.RDI,
		reg.R8, reg.R9, reg.R10, reg.R11),
	CalleeSaved:  hardware(reg.RBX, reg.R12, reg.R13, reg.R14, reg.R15),
	Return:       ir.Hardware(reg.RAX),
	StackPointer: ir.Hardware(reg.RSP),
	FramePointer: ir.Hardware(reg.RBP),
}

func hardware(rs ...reg.Physical) []ir.HardwareRegister {
	out := make([]ir.HardwareRegister, len(rs))
	for i, r := range rs {
		out[i] = ir.Hardware(r)
	}

	return out
}

var arithOpcodes = map[ir.BinaryOperator]instr.BinaryOpcode{
	ir.Add:    instr.OpAdd,
	ir.Sub:    instr.OpSub,
	ir.Mul:    instr.OpImul,
	ir.BitAnd: instr.OpAnd,
	ir.BitOr:  instr.OpOr,
	ir.BitXor: instr.OpXor,
}

var conditionCodes = map[ir.BinaryOperator]instr.ConditionCode{
	ir.Equal:        instr.CondE,
	ir.NotEqual:     instr.CondNE,
	ir.Less:         instr.CondL,
	ir.Greater:      instr.CondG,
	ir.LessEqual:    instr.CondLE,
	ir.GreaterEqual: instr.CondGE,
}

var comparisons = []ir.BinaryOperator{
	ir.Equal, ir.NotEqual, ir.Less, ir.Greater, ir.LessEqual, ir.GreaterEqual,
}

func arithOpcode(op ir.BinaryOperator) instr.BinaryOpcode {
	code, ok := arithOpcodes[op]
	if !ok {
		panic(fmt.Sprintf("no arithmetic instruction for operator %s", op))
	}
	return code
}

func conditionCode(op ir.BinaryOperator) instr.ConditionCode {
	code, ok := conditionCodes[op]
	if !ok {
		panic(fmt.Sprintf("no condition code for operator %s", op))
	}
	return code
}

// displacement turns the captured operator and constant of an
// "address ± constant" pattern into a signed displacement.
func displacement(m *pattern.Match, op, imm pattern.Pattern) int64 {
	d := pattern.Value[int64](m, imm)
	if pattern.Value[ir.BinaryOperator](m, op) == ir.Sub {
		return -d
	}
	return d
}

func insts(is ...instr.Instruction) []instr.Instruction {
	return is
}

// AMD64 returns the x86-64 rule catalogue.
func AMD64() *ISA {
	a := NewISA("amd64")
	a.Convention = AMD64Convention
	conv := a.Convention

	anyReg := pattern.Any[ir.Register]
	anyImm := pattern.Any[int64]
	imm32 := pattern.FitsInt32
	offsetOps := pattern.IsAnyOf(ir.Add, ir.Sub)
	selfUpdateOps := pattern.IsAnyOf(ir.Add, ir.Sub, ir.BitAnd, ir.BitOr, ir.BitXor)

	// $const
	{
		imm := pattern.Constant(anyImm())
		a.Register(pattern.Tree("$const", imm,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(instr.Mov{Dst: instr.Reg{Register: out},
					Src: instr.Imm{Value: pattern.Value[int64](e.Match, imm)}}), out
			}))
	}

	// $reg
	{
		r := pattern.RegisterRead(anyReg())
		a.Register(pattern.Tree("$reg", r,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return nil, pattern.Value[ir.Register](e.Match, r)
			}))
	}

	// [$label + d]
	{
		label := pattern.GlobalAddress()
		imm := pattern.Constant(imm32())
		a.Register(pattern.Tree("[$label + d]",
			pattern.MemoryRead(pattern.BinaryOp(pattern.Is(ir.Add), label, imm)),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(instr.Mov{Dst: instr.Reg{Register: out}, Src: instr.Mem{
					Base:         pattern.Value[ir.Label](e.Match, label),
					Displacement: pattern.Value[int64](e.Match, imm),
				}}), out
			}))
	}

	// [$reg ± d]
	{
		base := pattern.RegisterRead(anyReg())
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(offsetOps, base, imm)
		a.Register(pattern.Tree("[$reg ± d]", pattern.MemoryRead(op),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(instr.Mov{Dst: instr.Reg{Register: out}, Src: instr.Mem{
					BaseReg:      pattern.Value[ir.Register](e.Match, base),
					Displacement: displacement(e.Match, op, imm),
				}}), out
			}))
	}

	// [*]
	a.Register(pattern.Tree("[*]", pattern.MemoryRead(pattern.Wildcard()),
		func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
			out := ir.NewRegister()
			return insts(instr.Mov{Dst: instr.Reg{Register: out},
				Src: instr.Mem{BaseReg: e.Inputs[0]}}), out
		}))

	// lea $label
	{
		label := pattern.GlobalAddress()
		a.Register(pattern.Tree("$label", label,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(instr.Lea{Dst: out,
					Src: instr.Mem{Base: pattern.Value[ir.Label](e.Match, label)}}), out
			}))
	}

	// call $label
	{
		call := pattern.Call()
		a.Register(pattern.Tree("call $label", call,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				node := pattern.Value[*ir.Call](e.Match, call)
				if node.Arguments > len(conv.Arguments) {
					panic(fmt.Sprintf("call of %s passes %d register arguments, at most %d supported",
						node.Target, node.Arguments, len(conv.Arguments)))
				}

				args := make([]ir.Register, node.Arguments)
				for i := range args {
					args[i] = conv.Arguments[i]
				}
				clobbers := make([]ir.Register, len(conv.CallerSaved))
				for i, r := range conv.CallerSaved {
					clobbers[i] = r
				}

				out := ir.NewRegister()
				return insts(
					instr.Call{Target: node.Target, Arguments: args, Clobbers: clobbers},
					instr.MovRR(out, conv.Return),
				), out
			}))
	}

	// ret
	{
		ret := pattern.Return()
		a.Register(pattern.Tree("ret", ret,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				var results []ir.Register
				if pattern.Value[*ir.Return](e.Match, ret).HasValue {
					results = []ir.Register{conv.Return}
				}
				return insts(instr.Ret{Results: results}), nil
			}))
	}

	// mov $reg, $const
	{
		imm := pattern.Constant(anyImm())
		dst := pattern.RegisterWrite(anyReg(), imm)
		a.Register(pattern.Tree("mov $reg, $const", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Reg{Register: pattern.Value[ir.Register](e.Match, dst)},
					Src: instr.Imm{Value: pattern.Value[int64](e.Match, imm)},
				}), nil
			}))
	}

	// <op> $reg, $const
	{
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(selfUpdateOps, pattern.RegisterRead(pattern.SameAsWritten()), imm)
		dst := pattern.RegisterWrite(anyReg(), op)
		a.Register(pattern.Tree("<op> $reg, $const", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Binary{
					Op:  arithOpcode(pattern.Value[ir.BinaryOperator](e.Match, op)),
					Dst: instr.Reg{Register: pattern.Value[ir.Register](e.Match, dst)},
					Src: instr.Imm{Value: pattern.Value[int64](e.Match, imm)},
				}), nil
			}))
	}

	// mov $reg, [$label + d]
	{
		label := pattern.GlobalAddress()
		imm := pattern.Constant(imm32())
		dst := pattern.RegisterWrite(anyReg(),
			pattern.MemoryRead(pattern.BinaryOp(pattern.Is(ir.Add), label, imm)))
		a.Register(pattern.Tree("mov $reg, [$label + d]", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Reg{Register: pattern.Value[ir.Register](e.Match, dst)},
					Src: instr.Mem{
						Base:         pattern.Value[ir.Label](e.Match, label),
						Displacement: pattern.Value[int64](e.Match, imm),
					},
				}), nil
			}))
	}

	// mov $reg, [$reg ± d]
	{
		base := pattern.RegisterRead(anyReg())
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(offsetOps, base, imm)
		dst := pattern.RegisterWrite(anyReg(), pattern.MemoryRead(op))
		a.Register(pattern.Tree("mov $reg, [$reg ± d]", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Reg{Register: pattern.Value[ir.Register](e.Match, dst)},
					Src: instr.Mem{
						BaseReg:      pattern.Value[ir.Register](e.Match, base),
						Displacement: displacement(e.Match, op, imm),
					},
				}), nil
			}))
	}

	// mov $reg, [*]
	{
		dst := pattern.RegisterWrite(anyReg(), pattern.MemoryRead(pattern.Wildcard()))
		a.Register(pattern.Tree("mov $reg, [*]", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Reg{Register: pattern.Value[ir.Register](e.Match, dst)},
					Src: instr.Mem{BaseReg: e.Inputs[0]},
				}), nil
			}))
	}

	// mov $reg, *
	{
		dst := pattern.RegisterWrite(anyReg(), pattern.Wildcard())
		a.Register(pattern.Tree("mov $reg, *", dst,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.MovRR(pattern.Value[ir.Register](e.Match, dst), e.Inputs[0])), nil
			}))
	}

	// mov [$label + d], *
	{
		label := pattern.GlobalAddress()
		imm := pattern.Constant(imm32())
		a.Register(pattern.Tree("mov [$label + d], *",
			pattern.MemoryWrite(pattern.BinaryOp(pattern.Is(ir.Add), label, imm), pattern.Wildcard()),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Mem{
						Base:         pattern.Value[ir.Label](e.Match, label),
						Displacement: pattern.Value[int64](e.Match, imm),
					},
					Src: instr.Reg{Register: e.Inputs[0]},
				}), nil
			}))
	}

	// mov [$reg ± d], $const
	{
		base := pattern.RegisterRead(anyReg())
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(offsetOps, base, imm)
		value := pattern.Constant(imm32())
		a.Register(pattern.Tree("mov [$reg ± d], $const", pattern.MemoryWrite(op, value),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Mem{
						BaseReg:      pattern.Value[ir.Register](e.Match, base),
						Displacement: displacement(e.Match, op, imm),
					},
					Src: instr.Imm{Value: pattern.Value[int64](e.Match, value)},
				}), nil
			}))
	}

	// mov [$reg ± d], $reg
	{
		base := pattern.RegisterRead(anyReg())
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(offsetOps, base, imm)
		src := pattern.RegisterRead(anyReg())
		a.Register(pattern.Tree("mov [$reg ± d], $reg", pattern.MemoryWrite(op, src),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Mem{
						BaseReg:      pattern.Value[ir.Register](e.Match, base),
						Displacement: displacement(e.Match, op, imm),
					},
					Src: instr.Reg{Register: pattern.Value[ir.Register](e.Match, src)},
				}), nil
			}))
	}

	// mov [*], $const
	{
		imm := pattern.Constant(imm32())
		a.Register(pattern.Tree("mov [*], $const", pattern.MemoryWrite(pattern.Wildcard(), imm),
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				return insts(instr.Mov{
					Dst: instr.Mem{BaseReg: e.Inputs[0]},
					Src: instr.Imm{Value: pattern.Value[int64](e.Match, imm)},
				}), nil
			}))
	}

	// mov [*], *
	a.Register(pattern.Tree("mov [*], *", pattern.MemoryWrite(pattern.Wildcard(), pattern.Wildcard()),
		func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
			return insts(instr.Mov{
				Dst: instr.Mem{BaseReg: e.Inputs[0]},
				Src: instr.Reg{Register: e.Inputs[1]},
			}), nil
		}))

	// <op> *, $const
	{
		imm := pattern.Constant(imm32())
		op := pattern.BinaryOp(selfUpdateOps, pattern.Wildcard(), imm)
		a.Register(pattern.Tree("<op> *, $const", op,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(
					instr.MovRR(out, e.Inputs[0]),
					instr.Binary{
						Op:  arithOpcode(pattern.Value[ir.BinaryOperator](e.Match, op)),
						Dst: instr.Reg{Register: out},
						Src: instr.Imm{Value: pattern.Value[int64](e.Match, imm)},
					},
				), out
			}))
	}

	// <op> *, *
	{
		op := pattern.BinaryOp(
			pattern.IsAnyOf(ir.Add, ir.Sub, ir.Mul, ir.BitAnd, ir.BitOr, ir.BitXor),
			pattern.Wildcard(), pattern.Wildcard())
		a.Register(pattern.Tree("<op> *, *", op,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(
					instr.MovRR(out, e.Inputs[0]),
					instr.Binary{
						Op:  arithOpcode(pattern.Value[ir.BinaryOperator](e.Match, op)),
						Dst: instr.Reg{Register: out},
						Src: instr.Reg{Register: e.Inputs[1]},
					},
				), out
			}))
	}

	// <op> *
	{
		op := pattern.UnaryOp(pattern.Any[ir.UnaryOperator](), pattern.Wildcard())
		a.Register(pattern.Tree("<op> *", op,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				code := instr.OpNot
				if pattern.Value[ir.UnaryOperator](e.Match, op) == ir.Negate {
					code = instr.OpNeg
				}
				out := ir.NewRegister()
				return insts(instr.MovRR(out, e.Inputs[0]), instr.Unary{Op: code, Reg: out}), out
			}))
	}

	// xor $out, $out
	// cmp *, *
	// set<cc> $out
	{
		op := pattern.BinaryOp(pattern.IsAnyOf(comparisons...), pattern.Wildcard(), pattern.Wildcard())
		a.Register(pattern.Tree("set<cc> *, *", op,
			func(e pattern.Emission) ([]instr.Instruction, ir.Register) {
				out := ir.NewRegister()
				return insts(
					instr.Clear{Reg: out},
					instr.Binary{Op: instr.OpCmp,
						Dst: instr.Reg{Register: e.Inputs[0]}, Src: instr.Reg{Register: e.Inputs[1]}},
					instr.SetCC{Cond: conditionCode(pattern.Value[ir.BinaryOperator](e.Match, op)), Reg: out},
				), out
			}))
	}

	// jmp $label
	a.Register(pattern.Jump("jmp $label", func(next ir.Label) []instr.Instruction {
		if next == ir.NoLabel {
			return nil
		}
		return insts(instr.Jmp{Target: next})
	}))

	// cmp *, *
	// j<cc> $true
	// jmp $false
	{
		op := pattern.BinaryOp(pattern.IsAnyOf(comparisons...), pattern.Wildcard(), pattern.Wildcard())
		a.Register(pattern.Branch("j<cc> *, *", op, func(e pattern.Emission) []instr.Instruction {
			return insts(
				instr.Binary{Op: instr.OpCmp,
					Dst: instr.Reg{Register: e.Inputs[0]}, Src: instr.Reg{Register: e.Inputs[1]}},
				instr.JmpCC{Cond: conditionCode(pattern.Value[ir.BinaryOperator](e.Match, op)), Target: e.True},
				instr.Jmp{Target: e.False},
			)
		}))
	}

	// cmp *, 0
	// jne $true
	// jmp $false
	a.Register(pattern.Branch("jnz *", pattern.Wildcard(), func(e pattern.Emission) []instr.Instruction {
		return insts(
			instr.Binary{Op: instr.OpCmp, Dst: instr.Reg{Register: e.Inputs[0]}, Src: instr.Imm{Value: 0}},
			instr.JmpCC{Cond: instr.CondNE, Target: e.True},
			instr.Jmp{Target: e.False},
		)
	}))

	return a
}
