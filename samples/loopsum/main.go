package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mmcloughlin/avo/reg"
	"github.com/tebeka/atexit"
	"github.com/xyproto/env/v2"

	"github.com/sarchlab/tilecc/api"
	"github.com/sarchlab/tilecc/core"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/verify"
)

var (
	rax = ir.Hardware(reg.RAX)
	rdi = ir.Hardware(reg.RDI)
)

// sumBelow returns 0 + 1 + ... + (n-1), n being the first argument.
func sumBelow() ir.Block {
	n := ir.NewRegister()
	i := ir.NewRegister()
	s := ir.NewRegister()

	exit := &ir.SequentialBlock{Operations: []ir.Node{
		ir.Write(rax, ir.Read(s)),
		&ir.Return{HasValue: true},
	}}
	head := &ir.BranchBlock{
		Condition: ir.Binary(ir.Less, ir.Read(i), ir.Read(n)),
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
		Operations: []ir.Node{
			ir.Write(n, ir.Read(rdi)),
			ir.Write(i, ir.Const(0)),
			ir.Write(s, ir.Const(0)),
		},
		Next: head,
	}
}

// callSum calls sum(n) and returns the result.
func callSum(n int64) ir.Block {
	v := ir.NewRegister()

	return &ir.SequentialBlock{Operations: []ir.Node{
		ir.Write(rdi, ir.Const(n)),
		ir.Write(v, &ir.Call{Target: "sum", Arguments: 1}),
		ir.Write(rax, ir.Read(v)),
		&ir.Return{HasValue: true},
	}}
}

func main() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: core.LevelTrace,
	})
	slog.SetDefault(slog.New(handler))

	n := int64(env.Int("TILECC_SAMPLE_N", 10))

	driver := api.DriverBuilder{}.
		WithParallelism(2).
		Build("Driver")

	out, err := driver.Compile([]api.Function{
		{Name: "main", Frame: frame.New("main", isa.AMD64Convention), Body: callSum(n)},
		{Name: "sum", Frame: frame.New("sum", isa.AMD64Convention), Body: sumBelow()},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	streams := make(map[string][]instr.Item)
	for _, c := range out {
		streams[c.Name] = c.Items
		fmt.Print(instr.Format(c.Items))
		fmt.Println()
	}

	fs := verify.NewFunctionalSimulator(streams["main"]).
		WithCall("sum", func(args []int64) int64 {
			callee := verify.NewFunctionalSimulator(streams["sum"])
			callee.WriteRegister(rdi, args[0])
			if err := callee.Run(100000); err != nil {
				panic(err)
			}
			return callee.Result()
		})
	if err := fs.Run(100000); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	fmt.Printf("sum(%d) = %d\n", n, fs.Result())

	atexit.Exit(0)
}
