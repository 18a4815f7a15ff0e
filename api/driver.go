// Package api defines the driver that compiles whole programs, one function
// at a time, and wraps each function's stream with its frame setup.
package api

import (
	"fmt"
	"sync"

	"github.com/nikandfor/errors"

	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/core"
	"github.com/sarchlab/tilecc/cover"
	"github.com/sarchlab/tilecc/frame"
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/regalloc"
)

// Backend compiles the body of one function.
type Backend interface {
	// Compile translates body, allocating spill slots in f.
	Compile(body ir.Block, f *frame.Frame) *core.Result

	// ISA returns the catalogue the frame setup is selected from.
	ISA() *isa.ISA

	// Target returns the registers the backend allocates from.
	Target() *config.Target
}

// Function is a unit of compilation.
type Function struct {
	Name  string
	Frame *frame.Frame
	Body  ir.Block
}

// Compiled is the output for one function.
type Compiled struct {
	Name string

	// Items is the physical stream, frame setup included.
	Items []instr.Item

	// Mapping is the register assignment of the body.
	Mapping *regalloc.Allocation

	// Saved lists the callee-saved registers preserved by the frame.
	Saved []frame.Saved

	// Spilled lists the registers of the body moved to the stack.
	Spilled []ir.Register
}

// Driver provides the interface to compile programs.
type Driver interface {
	// Name returns the name of the driver.
	Name() string

	// Compile compiles every function. The output keeps the order of the
	// input. The first failing function aborts the whole compilation.
	Compile(functions []Function) ([]*Compiled, error)
}

type driverImpl struct {
	name        string
	backend     Backend
	parallelism int
}

func (d *driverImpl) Name() string {
	return d.name
}

func (d *driverImpl) Compile(functions []Function) ([]*Compiled, error) {
	out := make([]*Compiled, len(functions))
	errs := make([]error, len(functions))

	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < d.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				out[i], errs[i] = d.compileOne(functions[i])
			}
		}()
	}

	for i := range functions {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	core.Trace("Driver", "Driver", d.name, "Functions", len(functions))

	return out, nil
}

func (d *driverImpl) compileOne(fn Function) (c *Compiled, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = errors.Wrap(errors.New("%v", r), "function %v", fn.Name)
		}
	}()

	if fn.Frame == nil {
		panic("no frame")
	}

	// The entry block is never a jump target, so the prologue runs once.
	entry := &ir.SequentialBlock{Next: fn.Body}

	res := d.backend.Compile(entry, fn.Frame)
	saved := fn.Frame.Save(res.Mapping.Used(d.backend.Target().Palette))

	covering := cover.New(d.backend.ISA())
	prologue := physicalOnly(covering.CoverOperations(fn.Frame.Prologue(saved)))
	epilogue := physicalOnly(covering.CoverOperations(fn.Frame.Epilogue(saved)))

	items := assemble(res.Physical(), fn.Frame.Label(), prologue, epilogue)
	core.Trace("Function", "Driver", d.name, "Function", fn.Name,
		"Items", len(items), "Saved", len(saved), "Slots", fn.Frame.Slots())

	return &Compiled{
		Name:    fn.Name,
		Items:   items,
		Mapping: res.Mapping,
		Saved:   saved,
		Spilled: res.Spilled,
	}, nil
}

// assemble places the prologue after the entry label and the epilogue
// before every ret.
func assemble(body []instr.Item, entry ir.Label, prologue, epilogue []instr.Instruction) []instr.Item {
	out := make([]instr.Item, 0, len(body)+len(prologue)+len(epilogue))

	rest := body
	if entry != ir.NoLabel && len(body) > 0 && body[0] == entry {
		out = append(out, entry)
		rest = body[1:]
	}
	for _, i := range prologue {
		out = append(out, i)
	}

	for _, item := range rest {
		if _, ok := item.(instr.Ret); ok {
			for _, i := range epilogue {
				out = append(out, i)
			}
		}
		out = append(out, item)
	}

	return out
}

func physicalOnly(insts []instr.Instruction) []instr.Instruction {
	for _, i := range insts {
		for _, r := range instr.Registers(i) {
			if !ir.IsHardware(r) {
				panic(fmt.Sprintf("frame setup %q needs register %s", i, r))
			}
		}
	}

	return insts
}
