package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xyproto/env/v2"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/liveness"
	"github.com/sarchlab/tilecc/regalloc"
)

const LevelTrace slog.Level = slog.LevelInfo + 1

// PrintToggle turns the debug tables on. It is read from TILECC_PRINT.
var PrintToggle = env.Bool("TILECC_PRINT")

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerMethods:   true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
}

func PrintStream(name string, items []instr.Item) {
	if !PrintToggle {
		return
	}
	fmt.Printf("==============Stream@%s==============\n", name)
	fmt.Print(instr.Format(items))
}

func PrintLiveness(name string, res *liveness.Result) {
	if !PrintToggle {
		return
	}

	dot, err := res.Interference.DOT(name)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(dot))

	counts := make(map[string]int, len(res.Occurrences))
	for r, n := range res.Occurrences {
		counts[r.String()] = n
	}
	fmt.Print(dumper.Sdump(counts))
}

func PrintAllocation(name string, alloc *regalloc.Allocation, order []ir.Register) {
	if !PrintToggle {
		return
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Allocation@%s", name))
	t.AppendHeader(table.Row{"Register", "Physical"})

	for _, r := range order {
		h, ok := alloc.Lookup(r)
		if !ok {
			t.AppendRow(table.Row{r, "-"})
			continue
		}
		t.AppendRow(table.Row{r, h})
	}

	fmt.Println(t.Render())
	fmt.Println("================================================")
}

// registersOf lists the registers of a stream in order of appearance.
func registersOf(items []instr.Item) []ir.Register {
	var out []ir.Register
	seen := make(map[ir.Register]bool)
	for _, i := range instr.Instructions(items) {
		for _, r := range instr.Registers(i) {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}

	return out
}
