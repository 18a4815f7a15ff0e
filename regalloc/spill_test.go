package regalloc_test

import (
	"github.com/mmcloughlin/avo/reg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/cover"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/regalloc"
)

var _ = Describe("Spiller", func() {
	var (
		spiller *regalloc.Spiller
		f       *frame.Frame
		r10     ir.HardwareRegister
		rax     ir.HardwareRegister
	)

	BeforeEach(func() {
		r10 = ir.Hardware(reg.R10)
		rax = ir.Hardware(reg.RAX)
		spiller = regalloc.NewSpiller(
			cover.New(isa.AMD64()),
			palette(reg.R10, reg.R11),
		)
		f = frame.New("f", isa.AMD64Convention)
	})

	unassigned := func(rs ...ir.Register) *regalloc.Allocation {
		return &regalloc.Allocation{
			Assigned:   map[ir.Register]ir.HardwareRegister{},
			Unassigned: rs,
		}
	}

	expectTotal := func(items []instr.Item, alloc *regalloc.Allocation) {
		for _, i := range instr.Instructions(items) {
			for _, r := range instr.Registers(i) {
				_, ok := alloc.Lookup(r)
				Expect(ok).To(BeTrue(), "%s in %q", r, i)
			}
		}
		Expect(alloc.Complete()).To(BeTrue())
	}

	It("should load and store around an instruction", func() {
		v := ir.NewRegister()
		items := []instr.Item{
			instr.Mov{Dst: instr.Reg{Register: v}, Src: instr.Mem{BaseReg: v}},
		}

		out, alloc := spiller.Spill(items, unassigned(v), f)

		Expect(out).To(HaveLen(3))
		Expect(out[0].String()).To(Equal("mov r10, qword [rbp - 8]"))
		Expect(out[1].String()).To(Equal("mov r10, qword [r10]"))
		Expect(out[2].String()).To(Equal("mov qword [rbp - 8], r10"))
		Expect(f.Slots()).To(Equal(1))
		expectTotal(out, alloc)
	})

	It("should give each spilled register its own scratch register", func() {
		a, b := ir.NewRegister(), ir.NewRegister()
		items := []instr.Item{
			instr.Binary{Op: instr.OpAdd, Dst: instr.Reg{Register: a}, Src: instr.Reg{Register: b}},
		}

		out, alloc := spiller.Spill(items, unassigned(a, b), f)

		Expect(out).To(HaveLen(4))
		Expect(out[2].String()).To(Equal("add r10, r11"))
		Expect(out[3].String()).To(Equal("mov qword [rbp - 8], r10"))
		Expect(f.Slots()).To(Equal(2))
		expectTotal(out, alloc)
	})

	It("should store a move into a spilled register directly", func() {
		v := ir.NewRegister()
		items := []instr.Item{
			instr.Mov{Dst: instr.Reg{Register: v}, Src: instr.Reg{Register: rax}},
			instr.Mov{Dst: instr.Reg{Register: v}, Src: instr.Imm{Value: 7}},
		}

		out, alloc := spiller.Spill(items, unassigned(v), f)

		Expect(out).To(HaveLen(2))
		Expect(out[0].String()).To(Equal("mov qword [rbp - 8], rax"))
		Expect(out[1].String()).To(Equal("mov qword [rbp - 8], 7"))
		expectTotal(out, alloc)
	})

	It("should load a move from a spilled register directly", func() {
		v := ir.NewRegister()
		items := []instr.Item{instr.MovRR(rax, v)}

		out, _ := spiller.Spill(items, unassigned(v), f)

		Expect(out).To(HaveLen(1))
		Expect(out[0].String()).To(Equal("mov rax, qword [rbp - 8]"))
	})

	It("should keep labels and untouched instructions", func() {
		v, w := ir.NewRegister(), ir.NewRegister()
		l := ir.NewLabel()
		keep := instr.MovRR(w, w)
		alloc := unassigned(v)
		alloc.Assigned[w] = rax

		out, done := spiller.Spill([]instr.Item{l, keep}, alloc, f)

		Expect(out).To(Equal([]instr.Item{l, keep}))
		Expect(done.Assigned[w]).To(Equal(rax))
	})

	It("should map physical registers to themselves", func() {
		v := ir.NewRegister()
		items := []instr.Item{
			instr.Binary{Op: instr.OpAdd, Dst: instr.Reg{Register: v}, Src: instr.Imm{Value: 1}},
		}

		_, alloc := spiller.Spill(items, unassigned(v), f)

		Expect(alloc.Assigned[r10]).To(Equal(r10))
		Expect(alloc.Assigned[ir.Hardware(reg.RBP)]).To(Equal(ir.Hardware(reg.RBP)))
	})

	It("should panic when scratch registers run out", func() {
		one := regalloc.NewSpiller(cover.New(isa.AMD64()), palette(reg.R10))
		a, b := ir.NewRegister(), ir.NewRegister()
		items := []instr.Item{
			instr.Binary{Op: instr.OpAdd, Dst: instr.Reg{Register: a}, Src: instr.Reg{Register: b}},
		}

		Expect(func() { one.Spill(items, unassigned(a, b), f) }).To(Panic())
	})
})
