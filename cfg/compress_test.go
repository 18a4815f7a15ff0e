package cfg_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/cfg"
	"github.com/sarchlab/tilecc/ir"
)

func ops(n int) []ir.Node {
	out := make([]ir.Node, n)
	for i := range out {
		out[i] = ir.Write(ir.NewRegister(), ir.Const(int64(i)))
	}
	return out
}

func chain(lists ...[]ir.Node) *ir.SequentialBlock {
	var next ir.Block
	var head *ir.SequentialBlock
	for i := len(lists) - 1; i >= 0; i-- {
		head = &ir.SequentialBlock{Operations: lists[i], Next: next}
		next = head
	}
	return head
}

type unknownBlock struct{ ir.SequentialBlock }

var _ = Describe("Compress", func() {
	It("should merge a straight chain into one block", func() {
		o1, o2, o3 := ops(2), ops(1), ops(3)
		root := chain(o1, o2, o3)

		out, ok := cfg.Compress(root).(*ir.SequentialBlock)
		Expect(ok).To(BeTrue())
		Expect(out.Next).To(BeNil())

		var want []ir.Node
		want = append(want, o1...)
		want = append(want, o2...)
		want = append(want, o3...)
		Expect(out.Operations).To(Equal(want))
	})

	It("should not modify the input graph", func() {
		o1, o2 := ops(1), ops(1)
		root := chain(o1, o2)
		cfg.Compress(root)
		Expect(root.Operations).To(HaveLen(1))
		Expect(root.Next).NotTo(BeNil())
	})

	It("should be idempotent", func() {
		root := chain(ops(1), ops(2), ops(1))
		once := cfg.Compress(root).(*ir.SequentialBlock)
		twice := cfg.Compress(once).(*ir.SequentialBlock)
		Expect(twice.Operations).To(Equal(once.Operations))
		Expect(twice.Next).To(BeNil())
	})

	It("should compress both arms of a branch independently", func() {
		left := chain(ops(1), ops(1), ops(1))
		right := chain(ops(2), ops(2))
		head := &ir.SequentialBlock{Operations: ops(1)}
		branch := &ir.BranchBlock{Condition: ir.Const(1), True: left, False: right}
		head.Next = branch

		out := cfg.Compress(head).(*ir.SequentialBlock)
		Expect(out.Operations).To(HaveLen(1))

		b, ok := out.Next.(*ir.BranchBlock)
		Expect(ok).To(BeTrue())
		Expect(b.Condition).To(BeIdenticalTo(branch.Condition))

		l := b.True.(*ir.SequentialBlock)
		r := b.False.(*ir.SequentialBlock)
		Expect(l.Operations).To(HaveLen(3))
		Expect(l.Next).To(BeNil())
		Expect(r.Operations).To(HaveLen(4))
		Expect(r.Next).To(BeNil())
	})

	It("should not merge a block reached from two edges", func() {
		join := chain(ops(1), ops(1))
		left := &ir.SequentialBlock{Operations: ops(1), Next: join}
		right := &ir.SequentialBlock{Operations: ops(1), Next: join}
		root := &ir.BranchBlock{Condition: ir.Const(0), True: left, False: right}

		out := cfg.Compress(root).(*ir.BranchBlock)
		l := out.True.(*ir.SequentialBlock)
		r := out.False.(*ir.SequentialBlock)
		Expect(l.Operations).To(HaveLen(1))
		Expect(l.Next).To(BeIdenticalTo(r.Next))

		j := l.Next.(*ir.SequentialBlock)
		Expect(j.Operations).To(HaveLen(2))
	})

	It("should keep a self loop", func() {
		loop := &ir.SequentialBlock{Operations: ops(2)}
		loop.Next = loop

		out := cfg.Compress(loop).(*ir.SequentialBlock)
		Expect(out.Next).To(BeIdenticalTo(out))
		Expect(out.Operations).To(HaveLen(2))
	})

	It("should fold a loop body into its header", func() {
		header := &ir.SequentialBlock{Operations: ops(1)}
		body := &ir.SequentialBlock{Operations: ops(1), Next: header}
		header.Next = body
		entry := &ir.SequentialBlock{Operations: ops(1), Next: header}

		out := cfg.Compress(entry).(*ir.SequentialBlock)
		Expect(out.Operations).To(HaveLen(1))

		h := out.Next.(*ir.SequentialBlock)
		Expect(h.Operations).To(HaveLen(2))
		Expect(h.Next).To(BeIdenticalTo(h))
	})

	It("should keep loops through branches", func() {
		exit := &ir.SequentialBlock{Operations: ops(1)}
		body := &ir.SequentialBlock{Operations: ops(1)}
		cond := &ir.BranchBlock{Condition: ir.Const(1), True: body, False: exit}
		body.Next = cond
		entry := &ir.SequentialBlock{Operations: ops(1), Next: cond}

		out := cfg.Compress(entry).(*ir.SequentialBlock)
		c := out.Next.(*ir.BranchBlock)
		Expect(c.True.(*ir.SequentialBlock).Next).To(BeIdenticalTo(c))
	})

	It("should not copy a looping root into its latch", func() {
		r := ir.NewRegister()
		exit := &ir.SequentialBlock{Operations: ops(1)}
		latch := &ir.SequentialBlock{Operations: []ir.Node{ir.Write(r, ir.Const(8))}}
		cond := &ir.BranchBlock{Condition: ir.Read(r), True: latch, False: exit}
		root := &ir.SequentialBlock{
			Operations: []ir.Node{ir.Write(r, ir.Const(7))},
			Next:       cond,
		}
		latch.Next = root

		out := cfg.Compress(root).(*ir.SequentialBlock)
		Expect(out.Operations).To(HaveLen(1))

		c := out.Next.(*ir.BranchBlock)
		l := c.True.(*ir.SequentialBlock)
		Expect(l.Operations).To(Equal(latch.Operations))
		Expect(l.Next).To(BeIdenticalTo(out))
	})

	It("should keep a root with a single back edge apart", func() {
		root := &ir.SequentialBlock{Operations: ops(1)}
		body := &ir.SequentialBlock{Operations: ops(2), Next: root}
		root.Next = body

		out := cfg.Compress(root).(*ir.SequentialBlock)
		Expect(out.Operations).To(HaveLen(3))
		Expect(out.Next).To(BeIdenticalTo(out))
	})

	It("should panic on unknown block variants", func() {
		Expect(func() { cfg.Compress(&unknownBlock{}) }).To(Panic())
	})
})
