package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mmcloughlin/avo/reg"

	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/core"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/verify"
)

// sumOfValues keeps n constants alive at once and returns their sum.
func sumOfValues(n int) ir.Block {
	rax := ir.Hardware(reg.RAX)

	values := make([]ir.VirtualRegister, n)
	var ops []ir.Node
	for i := range values {
		values[i] = ir.NewRegister()
		ops = append(ops, ir.Write(values[i], ir.Const(int64(i+1))))
	}

	acc := ir.NewRegister()
	ops = append(ops, ir.Write(acc, ir.Read(values[0])))
	for _, v := range values[1:] {
		ops = append(ops, ir.Write(acc, ir.Binary(ir.Add, ir.Read(acc), ir.Read(v))))
	}
	ops = append(ops, ir.Write(rax, ir.Read(acc)), &ir.Return{HasValue: true})

	return &ir.SequentialBlock{Operations: ops}
}

func main() {
	values := flag.Int("values", 12, "number of values alive at once")
	output := flag.String("o", "", "file to save the report to")
	flag.Parse()

	target := config.TargetBuilder{}.
		WithRegisters(reg.RAX, reg.RBX, reg.RCX, reg.RDX, reg.R10, reg.R11).
		WithScratch(reg.R10, reg.R11).
		Build("pressure")
	backend := core.BackendBuilder{}.WithTarget(target).Build("Backend")

	f := frame.New("sum", isa.AMD64Convention)
	res := backend.Compile(sumOfValues(*values), f)

	fmt.Printf("Compiled %d items, %d registers spilled into %d slots\n\n",
		len(res.Items), len(res.Spilled), f.Slots())

	report := verify.GenerateReport("sum", res.Allocated, res.Mapping, target.Palette, 10000)
	report.WriteReport(os.Stdout)

	if *output != "" {
		if err := report.SaveReportToFile(*output); err != nil {
			log.Fatalf("Failed to save report: %v", err)
		}
	}

	want := int64(*values * (*values + 1) / 2)
	if !report.Passed() || report.Result != want {
		log.Fatalf("Verification failed: returned %d, want %d", report.Result, want)
	}
}
