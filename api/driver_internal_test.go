package api

import (
	"github.com/golang/mock/gomock"
	"github.com/mmcloughlin/avo/reg"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/core"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/regalloc"
	"github.com/sarchlab/tilecc/verify"
)

var (
	rax = ir.Hardware(reg.RAX)
	rbx = ir.Hardware(reg.RBX)
	rsp = ir.Hardware(reg.RSP)
	rbp = ir.Hardware(reg.RBP)
)

func movImm(r ir.Register, v int64) instr.Mov {
	return instr.Mov{Dst: instr.Reg{Register: r}, Src: instr.Imm{Value: v}}
}

func identity(regs ...ir.HardwareRegister) *regalloc.Allocation {
	a := &regalloc.Allocation{Assigned: make(map[ir.Register]ir.HardwareRegister)}
	for _, r := range regs {
		a.Assigned[r] = r
	}

	return a
}

func simulate(items []instr.Item) *verify.FunctionalSimulator {
	fs := verify.NewFunctionalSimulator(items)
	fs.WriteRegister(rbx, 99)
	Expect(fs.Run(1000)).To(Succeed())

	return fs
}

func expectFrameRestored(fs *verify.FunctionalSimulator) {
	sp, _ := fs.ReadRegister(rsp)
	fp, _ := fs.ReadRegister(rbp)
	Expect(sp).To(Equal(verify.StackBase))
	Expect(fp).To(Equal(verify.StackBase))
}

func countLoop(limit int64) ir.Block {
	i := ir.NewRegister()
	s := ir.NewRegister()

	exit := &ir.SequentialBlock{Operations: []ir.Node{
		ir.Write(rax, ir.Read(s)),
		&ir.Return{HasValue: true},
	}}
	head := &ir.BranchBlock{
		Condition: ir.Binary(ir.Less, ir.Read(i), ir.Const(limit)),
		False:     exit,
	}
	head.True = &ir.SequentialBlock{
		Operations: []ir.Node{
			ir.Write(s, ir.Binary(ir.Add, ir.Read(s), ir.Read(i))),
			ir.Write(i, ir.Binary(ir.Add, ir.Read(i), ir.Const(1))),
		},
		Next: head,
	}

	return &ir.SequentialBlock{
		Operations: []ir.Node{ir.Write(i, ir.Const(0)), ir.Write(s, ir.Const(0))},
		Next:       head,
	}
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl    *gomock.Controller
		mockBackend *MockBackend
		driver      Driver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		mockBackend = NewMockBackend(mockCtrl)
		mockBackend.EXPECT().ISA().Return(isa.AMD64()).AnyTimes()
		mockBackend.EXPECT().Target().Return(config.TargetBuilder{}.Build("amd64")).AnyTimes()

		driver = DriverBuilder{}.WithBackend(mockBackend).Build("Driver")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should wrap the body with the frame setup", func() {
		f := frame.New("seven", isa.AMD64Convention)
		mockBackend.EXPECT().
			Compile(gomock.Any(), f).
			Return(&core.Result{
				Items:   []instr.Item{ir.Label("seven"), movImm(rax, 7), instr.Ret{}},
				Mapping: identity(rax),
			})

		out, err := driver.Compile([]Function{{Name: "seven", Frame: f}})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(1))
		Expect(out[0].Name).To(Equal("seven"))
		Expect(out[0].Saved).To(BeEmpty())

		items := out[0].Items
		Expect(items[0]).To(Equal(ir.Label("seven")))
		Expect(items[len(items)-1]).To(Equal(instr.Ret{}))
		Expect(len(items)).To(BeNumerically(">", 3))

		fs := simulate(items)
		Expect(fs.Result()).To(Equal(int64(7)))
		expectFrameRestored(fs)
	})

	It("should preserve callee-saved registers", func() {
		f := frame.New("five", isa.AMD64Convention)
		mockBackend.EXPECT().
			Compile(gomock.Any(), f).
			Return(&core.Result{
				Items: []instr.Item{
					ir.Label("five"),
					movImm(rbx, 5),
					instr.MovRR(rax, rbx),
					instr.Ret{},
				},
				Mapping: identity(rax, rbx),
			})

		out, err := driver.Compile([]Function{{Name: "five", Frame: f}})

		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].Saved).To(HaveLen(1))
		Expect(out[0].Saved[0].Register).To(Equal(rbx))
		Expect(f.Slots()).To(Equal(1))
		Expect(instr.Format(out[0].Items)).To(ContainSubstring("mov qword [rbp - 8], rbx"))

		fs := simulate(out[0].Items)
		Expect(fs.Result()).To(Equal(int64(5)))
		saved, _ := fs.ReadRegister(rbx)
		Expect(saved).To(Equal(int64(99)))
		expectFrameRestored(fs)
	})

	It("should report the failing function", func() {
		mockBackend.EXPECT().
			Compile(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ir.Block, *frame.Frame) *core.Result {
				panic("no rule")
			})

		out, err := driver.Compile([]Function{
			{Name: "boom", Frame: frame.New("boom", isa.AMD64Convention)},
		})

		Expect(out).To(BeNil())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("function boom"))
		Expect(err.Error()).To(ContainSubstring("no rule"))
	})

	It("should reject functions without a frame", func() {
		_, err := driver.Compile([]Function{{Name: "frameless"}})

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("frameless"))
	})
})

var _ = Describe("Driver with a backend", func() {
	It("should compile functions in parallel and keep their order", func() {
		driver := DriverBuilder{}.WithParallelism(4).Build("Parallel")
		Expect(driver.Name()).To(Equal("Parallel"))

		var functions []Function
		for k := int64(1); k <= 8; k++ {
			name := ir.NewLabel()
			functions = append(functions, Function{
				Name:  string(name),
				Frame: frame.New(name, isa.AMD64Convention),
				Body:  countLoop(k),
			})
		}

		out, err := driver.Compile(functions)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(len(functions)))
		for k, c := range out {
			Expect(c.Name).To(Equal(functions[k].Name))
			Expect(c.Mapping.Complete()).To(BeTrue())

			n := int64(k + 1)
			fs := simulate(c.Items)
			Expect(fs.Result()).To(Equal(n * (n - 1) / 2))
			expectFrameRestored(fs)
		}
	})

	It("should run the prologue once when the body starts with a loop", func() {
		rdi := ir.Hardware(reg.RDI)
		exit := &ir.SequentialBlock{Operations: []ir.Node{
			ir.Write(rax, ir.Read(rdi)),
			&ir.Return{HasValue: true},
		}}
		head := &ir.BranchBlock{
			Condition: ir.Binary(ir.Less, ir.Read(rdi), ir.Const(10)),
			False:     exit,
		}
		head.True = &ir.SequentialBlock{
			Operations: []ir.Node{ir.Write(rdi, ir.Binary(ir.Add, ir.Read(rdi), ir.Const(1)))},
			Next:       head,
		}

		out, err := DriverBuilder{}.Build("Driver").Compile([]Function{
			{Name: "count", Frame: frame.New("count", isa.AMD64Convention), Body: head},
		})
		Expect(err).NotTo(HaveOccurred())

		fs := verify.NewFunctionalSimulator(out[0].Items)
		fs.WriteRegister(rdi, 3)
		Expect(fs.Run(1000)).To(Succeed())
		Expect(fs.Result()).To(Equal(int64(10)))
		expectFrameRestored(fs)
	})

	It("should refuse a negative parallelism", func() {
		Expect(func() { DriverBuilder{}.WithParallelism(-1).Build("Driver") }).To(Panic())
	})
})

var _ = Describe("Assemble", func() {
	p := movImm(rax, 1)
	q := movImm(rax, 2)

	It("should put the prologue after the entry label", func() {
		out := assemble(
			[]instr.Item{ir.Label("f"), instr.Ret{}, ir.Label("g"), instr.Ret{}},
			"f", []instr.Instruction{p}, []instr.Instruction{q})

		Expect(out).To(Equal([]instr.Item{
			ir.Label("f"), p, q, instr.Ret{}, ir.Label("g"), q, instr.Ret{},
		}))
	})

	It("should put the prologue first without an entry label", func() {
		out := assemble([]instr.Item{instr.Ret{}}, ir.NoLabel,
			[]instr.Instruction{p}, []instr.Instruction{q})

		Expect(out).To(Equal([]instr.Item{p, q, instr.Ret{}}))
	})

	It("should refuse frame setup over virtual registers", func() {
		v := ir.NewRegister()
		Expect(func() { physicalOnly([]instr.Instruction{movImm(v, 1)}) }).To(Panic())
	})
})
