package ir_test

import (
	"github.com/mmcloughlin/avo/reg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/ir"
)

var _ = Describe("Registers", func() {
	It("should hand out distinct virtual registers", func() {
		a := ir.NewRegister()
		b := ir.NewRegister()
		Expect(a).NotTo(Equal(b))
		Expect(a.ID()).NotTo(Equal(b.ID()))
	})

	It("should compare hardware registers by identity of the physical register", func() {
		Expect(ir.Hardware(reg.RAX)).To(Equal(ir.Hardware(reg.RAX)))
		Expect(ir.Hardware(reg.RAX)).NotTo(Equal(ir.Hardware(reg.RBX)))
		Expect(ir.IsHardware(ir.Hardware(reg.R10))).To(BeTrue())
		Expect(ir.IsHardware(ir.NewRegister())).To(BeFalse())
	})

	It("should use 64-bit assembler names", func() {
		Expect(ir.Hardware(reg.RAX).String()).To(Equal("rax"))
		Expect(ir.Hardware(reg.RSI).String()).To(Equal("rsi"))
		Expect(ir.Hardware(reg.R8).String()).To(Equal("r8"))
		Expect(ir.Hardware(reg.R15).String()).To(Equal("r15"))
	})
})

var _ = Describe("Labels", func() {
	It("should be unique", func() {
		seen := map[ir.Label]bool{}
		for i := 0; i < 100; i++ {
			l := ir.NewLabel()
			Expect(seen).NotTo(HaveKey(l))
			seen[l] = true
		}
	})
})

var _ = Describe("Blocks", func() {
	It("should list successors", func() {
		exit := &ir.SequentialBlock{}
		other := &ir.SequentialBlock{Next: exit}
		branch := &ir.BranchBlock{Condition: ir.Const(1), True: other, False: exit}

		Expect(ir.Successors(exit)).To(BeEmpty())
		Expect(ir.Successors(other)).To(Equal([]ir.Block{exit}))
		Expect(ir.Successors(branch)).To(Equal([]ir.Block{other, exit}))
	})

	It("should walk cyclic graphs once per block", func() {
		loop := &ir.SequentialBlock{}
		branch := &ir.BranchBlock{Condition: ir.Const(1), True: loop, False: &ir.SequentialBlock{}}
		loop.Next = branch

		Expect(ir.Reachable(loop)).To(HaveLen(3))
	})

	It("should keep structurally equal blocks apart", func() {
		a := &ir.SequentialBlock{}
		b := &ir.SequentialBlock{}
		m := map[ir.Block]int{a: 1, b: 2}
		Expect(m).To(HaveLen(2))
	})

	It("should panic on unknown variants", func() {
		Expect(func() { ir.Successors(nil) }).To(Panic())
	})
})

var _ = Describe("Nodes", func() {
	It("should render trees", func() {
		r := ir.NewRegister()
		n := ir.Write(r, ir.Binary(ir.Add, ir.Const(1), ir.Load(ir.Read(ir.Hardware(reg.RBP)))))
		Expect(n.String()).To(Equal(r.String() + " := (1 + [rbp])"))
	})

	It("should classify comparisons", func() {
		Expect(ir.Less.IsComparison()).To(BeTrue())
		Expect(ir.Add.IsComparison()).To(BeFalse())
	})
})
