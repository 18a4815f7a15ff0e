package cover_test

import (
	"github.com/mmcloughlin/avo/reg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/cover"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/pattern"
)

var _ = Describe("Covering", func() {
	var (
		c   *cover.Covering
		rbp ir.HardwareRegister
		r10 ir.HardwareRegister
	)

	BeforeEach(func() {
		c = cover.New(isa.AMD64())
		rbp = ir.Hardware(reg.RBP)
		r10 = ir.Hardware(reg.R10)
	})

	Context("costs", func() {
		It("should prefer the immediate form of arithmetic", func() {
			n := ir.Binary(ir.Add, ir.Const(1), ir.Const(2))
			Expect(c.Cost(n)).To(Equal(2))
			Expect(c.RuleFor(n)).To(Equal("<op> *, $const"))
		})

		It("should store constants without a temporary", func() {
			n := ir.Write(ir.NewRegister(), ir.Const(5))
			Expect(c.Cost(n)).To(Equal(1))
			Expect(c.RuleFor(n)).To(Equal("mov $reg, $const"))
		})

		It("should return the same answer for the same node", func() {
			n := ir.Binary(ir.Mul, ir.Load(ir.Read(ir.NewRegister())), ir.Const(3))
			first := c.Cost(n)
			Expect(c.Cost(n)).To(Equal(first))
			Expect(c.RuleFor(n)).To(Equal(c.RuleFor(n)))
			Expect(first).To(Equal(4))
		})

		It("should be deterministic across coverings", func() {
			n := ir.Write(ir.NewRegister(),
				ir.Binary(ir.Less, ir.Read(ir.NewRegister()), ir.Unary(ir.Negate, ir.Const(4))))
			other := cover.New(isa.AMD64())
			Expect(c.Cost(n)).To(Equal(other.Cost(n)))
			Expect(c.RuleFor(n)).To(Equal(other.RuleFor(n)))
		})

		It("should report uncoverable nodes", func() {
			empty := isa.NewISA("empty")
			Expect(cover.New(empty).Cost(ir.Const(1))).To(Equal(-1))
		})
	})

	Context("ties", func() {
		It("should take the first declared rule", func() {
			catalogue := isa.NewISA("tie")
			catalogue.Register(
				pattern.Tree("first", pattern.Constant(pattern.Any[int64]()),
					func(pattern.Emission) ([]instr.Instruction, ir.Register) {
						return []instr.Instruction{instr.Ret{}}, ir.NewRegister()
					}),
				pattern.Tree("second", pattern.Constant(pattern.Any[int64]()),
					func(pattern.Emission) ([]instr.Instruction, ir.Register) {
						return nil, ir.NewRegister()
					}),
			)

			Expect(cover.New(catalogue).RuleFor(ir.Const(1))).To(Equal("first"))
		})
	})

	Context("emission", func() {
		It("should evaluate 1 + 2 into a fresh register", func() {
			insts, out := c.CoverValue(ir.Binary(ir.Add, ir.Const(1), ir.Const(2)))
			Expect(out).NotTo(BeNil())
			Expect(insts).To(HaveLen(3))
			Expect(insts[0]).To(BeAssignableToTypeOf(instr.Mov{}))
			Expect(insts[2]).To(Equal(instr.Binary{
				Op: instr.OpAdd, Dst: instr.Reg{Register: out}, Src: instr.Imm{Value: 2},
			}))
		})

		It("should cover structurally equal trees separately", func() {
			a := ir.Const(7)
			b := ir.Const(7)
			_, ra := c.CoverValue(a)
			_, rb := c.CoverValue(b)
			Expect(ra).NotTo(Equal(rb))
		})

		It("should load a frame slot in one instruction", func() {
			insts := c.CoverOperations([]ir.Node{
				ir.Write(r10, ir.Load(ir.Binary(ir.Sub, ir.Read(rbp), ir.Const(16)))),
			})
			Expect(insts).To(Equal([]instr.Instruction{
				instr.Mov{Dst: instr.Reg{Register: r10}, Src: instr.Mem{BaseReg: rbp, Displacement: -16}},
			}))
		})

		It("should store into a frame slot in one instruction", func() {
			insts := c.CoverOperations([]ir.Node{
				ir.Store(ir.Binary(ir.Sub, ir.Read(rbp), ir.Const(8)), ir.Read(r10)),
			})
			Expect(insts).To(Equal([]instr.Instruction{
				instr.Mov{Dst: instr.Mem{BaseReg: rbp, Displacement: -8}, Src: instr.Reg{Register: r10}},
			}))
		})

		It("should stage immediates wider than 32 bits in a register", func() {
			wide := int64(1) << 40
			store := ir.Store(ir.Binary(ir.Sub, ir.Read(rbp), ir.Const(8)), ir.Const(wide))
			Expect(c.RuleFor(store)).To(Equal("mov [*], *"))

			insts := c.CoverOperations([]ir.Node{store})
			Expect(insts).To(ContainElement(instr.Mov{
				Dst: instr.Reg{Register: insts[len(insts)-1].(instr.Mov).Src.(instr.Reg).Register},
				Src: instr.Imm{Value: wide},
			}))
			for _, in := range insts {
				if mov, ok := in.(instr.Mov); ok {
					_, toMemory := mov.Dst.(instr.Mem)
					_, fromImm := mov.Src.(instr.Imm)
					Expect(toMemory && fromImm).To(BeFalse())
				}
			}

			sum := ir.Binary(ir.Add, ir.Read(r10), ir.Const(wide))
			Expect(c.RuleFor(sum)).To(Equal("<op> *, *"))
		})

		It("should compute addresses with wide displacements", func() {
			load := ir.Write(r10, ir.Load(ir.Binary(ir.Sub, ir.Read(rbp), ir.Const(1<<40))))
			Expect(c.RuleFor(load)).To(Equal("mov $reg, [*]"))
		})

		It("should keep 32-bit immediates inline in stores", func() {
			insts := c.CoverOperations([]ir.Node{
				ir.Store(ir.Binary(ir.Sub, ir.Read(rbp), ir.Const(8)), ir.Const(-1 << 31)),
			})
			Expect(insts).To(Equal([]instr.Instruction{
				instr.Mov{Dst: instr.Mem{BaseReg: rbp, Displacement: -8}, Src: instr.Imm{Value: -1 << 31}},
			}))
		})

		It("should update a register in place", func() {
			rsp := ir.Hardware(reg.RSP)
			insts := c.CoverOperations([]ir.Node{
				ir.Write(rsp, ir.Binary(ir.Sub, ir.Read(rsp), ir.Const(32))),
			})
			Expect(insts).To(Equal([]instr.Instruction{
				instr.Binary{Op: instr.OpSub, Dst: instr.Reg{Register: rsp}, Src: instr.Imm{Value: 32}},
			}))
		})

		It("should call and collect the result", func() {
			v := ir.NewRegister()
			insts := c.CoverOperations([]ir.Node{ir.Write(v, &ir.Call{Target: "f", Arguments: 2})})
			Expect(insts).To(HaveLen(3))
			call, ok := insts[0].(instr.Call)
			Expect(ok).To(BeTrue())
			Expect(call.Uses()).To(Equal([]ir.Register{ir.Hardware(reg.RDI), ir.Hardware(reg.RSI)}))
			Expect(call.Defines()).To(ContainElement(ir.Register(ir.Hardware(reg.RAX))))
			Expect(insts[2].Defines()).To(Equal([]ir.Register{v}))
		})

		It("should panic when no rule applies", func() {
			catalogue := isa.NewISA("consts only")
			catalogue.Register(pattern.Tree("$const", pattern.Constant(pattern.Any[int64]()),
				func(pattern.Emission) ([]instr.Instruction, ir.Register) {
					return nil, ir.NewRegister()
				}))
			Expect(func() {
				cover.New(catalogue).CoverOperations([]ir.Node{ir.Read(ir.NewRegister())})
			}).To(Panic())
		})
	})

	Context("blocks", func() {
		It("should jump to the continuation", func() {
			next := ir.NewLabel()
			b := &ir.SequentialBlock{Operations: []ir.Node{ir.Write(ir.NewRegister(), ir.Const(1))}}
			insts := c.CoverSequence(b, next)
			Expect(insts).To(HaveLen(2))
			Expect(insts[1]).To(Equal(instr.Jmp{Target: next}))
		})

		It("should not jump without a continuation", func() {
			b := &ir.SequentialBlock{Operations: []ir.Node{&ir.Return{}}}
			Expect(c.CoverSequence(b, ir.NoLabel)).To(Equal([]instr.Instruction{instr.Ret{}}))
		})

		It("should fuse comparisons into the branch", func() {
			x, y := ir.NewRegister(), ir.NewRegister()
			t, f := ir.NewLabel(), ir.NewLabel()
			b := &ir.BranchBlock{Condition: ir.Binary(ir.Less, ir.Read(x), ir.Read(y))}
			Expect(c.CoverBranch(b, t, f)).To(Equal([]instr.Instruction{
				instr.Binary{Op: instr.OpCmp, Dst: instr.Reg{Register: x}, Src: instr.Reg{Register: y}},
				instr.JmpCC{Cond: instr.CondL, Target: t},
				instr.Jmp{Target: f},
			}))
		})

		It("should test other conditions against zero", func() {
			x := ir.NewRegister()
			t, f := ir.NewLabel(), ir.NewLabel()
			b := &ir.BranchBlock{Condition: ir.Read(x)}
			Expect(c.CoverBranch(b, t, f)).To(Equal([]instr.Instruction{
				instr.Binary{Op: instr.OpCmp, Dst: instr.Reg{Register: x}, Src: instr.Imm{Value: 0}},
				instr.JmpCC{Cond: instr.CondNE, Target: t},
				instr.Jmp{Target: f},
			}))
		})
	})
})
