package verify

import (
	"github.com/mmcloughlin/avo/reg"
	"github.com/nikandfor/errors"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// StackBase is the initial value of the stack and frame pointers.
const StackBase int64 = 1 << 20

// globalBase is the address of the first global label. Globals are spaced
// globalStride bytes apart.
const (
	globalBase   int64 = 1 << 32
	globalStride int64 = 1 << 12
)

var (
	returnRegister = ir.Hardware(reg.RAX)
	stackPointer   = ir.Hardware(reg.RSP)
	framePointer   = ir.Hardware(reg.RBP)
)

// CallHook models a callee. It receives the values of the call's argument
// registers and returns the value left in rax.
type CallHook func(args []int64) int64

// FunctionalSimulator interprets an instruction stream. Registers and
// memory are modeled as maps; memory that was never written reads as zero.
type FunctionalSimulator struct {
	items   []instr.Item
	labels  map[ir.Label]int
	globals map[ir.Label]int64
	calls   map[ir.Label]CallHook

	regs     map[ir.Register]int64
	poisoned map[ir.Register]bool
	mem      map[int64]int64

	cmpLeft, cmpRight int64

	pc       int
	steps    int
	returned bool
}

// NewFunctionalSimulator creates a simulator for items. Execution starts at
// the first item.
func NewFunctionalSimulator(items []instr.Item) *FunctionalSimulator {
	fs := &FunctionalSimulator{
		items:    items,
		labels:   make(map[ir.Label]int),
		globals:  make(map[ir.Label]int64),
		calls:    make(map[ir.Label]CallHook),
		regs:     make(map[ir.Register]int64),
		poisoned: make(map[ir.Register]bool),
		mem:      make(map[int64]int64),
	}

	fs.regs[stackPointer] = StackBase
	fs.regs[framePointer] = StackBase

	return fs
}

// WithCall registers the callee invoked by calls to target.
func (fs *FunctionalSimulator) WithCall(target ir.Label, hook CallHook) *FunctionalSimulator {
	fs.calls[target] = hook
	return fs
}

// WriteRegister sets the value of a register before running.
func (fs *FunctionalSimulator) WriteRegister(r ir.Register, v int64) {
	fs.regs[r] = v
	delete(fs.poisoned, r)
}

// ReadRegister returns the current value of a register and whether it holds
// a defined value.
func (fs *FunctionalSimulator) ReadRegister(r ir.Register) (int64, bool) {
	if fs.poisoned[r] {
		return 0, false
	}

	v, ok := fs.regs[r]
	return v, ok || ir.IsHardware(r)
}

// WriteMemory stores a word at addr.
func (fs *FunctionalSimulator) WriteMemory(addr, v int64) {
	fs.mem[addr] = v
}

// ReadMemory loads the word at addr.
func (fs *FunctionalSimulator) ReadMemory(addr int64) int64 {
	return fs.mem[addr]
}

// GlobalAddress returns the address given to a global label.
func (fs *FunctionalSimulator) GlobalAddress(l ir.Label) int64 {
	if addr, ok := fs.globals[l]; ok {
		return addr
	}

	addr := globalBase + int64(len(fs.globals))*globalStride
	fs.globals[l] = addr
	return addr
}

// Steps returns the number of instructions executed so far.
func (fs *FunctionalSimulator) Steps() int {
	return fs.steps
}

// Returned tells if execution reached a ret.
func (fs *FunctionalSimulator) Returned() bool {
	return fs.returned
}

// Result returns the value of rax.
func (fs *FunctionalSimulator) Result() int64 {
	return fs.regs[returnRegister]
}

// Run executes the stream for up to maxSteps instructions, stopping at the
// first ret. Returns an error if execution fails.
func (fs *FunctionalSimulator) Run(maxSteps int) error {
	for idx, item := range fs.items {
		l, ok := item.(ir.Label)
		if !ok {
			continue
		}
		if _, dup := fs.labels[l]; dup {
			return errors.New("label %v defined twice", l)
		}
		fs.labels[l] = idx
	}

	for !fs.returned {
		if fs.pc >= len(fs.items) {
			return errors.New("execution fell off the end of the stream")
		}

		item := fs.items[fs.pc]
		fs.pc++

		i, ok := item.(instr.Instruction)
		if !ok {
			continue
		}

		if fs.steps >= maxSteps {
			return errors.New("no ret after %d steps", maxSteps)
		}
		fs.steps++

		if err := fs.executeOp(i); err != nil {
			return errors.Wrap(err, "at %d: %v", fs.pc-1, i)
		}
	}

	return nil
}

// executeOp executes a single instruction
func (fs *FunctionalSimulator) executeOp(i instr.Instruction) error {
	switch i := i.(type) {
	case instr.Mov:
		return fs.runMov(i)
	case instr.Binary:
		return fs.runBinary(i)
	case instr.Unary:
		return fs.runUnary(i)
	case instr.Clear:
		fs.write(i.Reg, 0)
		return nil
	case instr.SetCC:
		return fs.runSetCC(i)
	case instr.Lea:
		addr, err := fs.address(i.Src)
		if err != nil {
			return err
		}
		fs.write(i.Dst, addr)
		return nil
	case instr.Jmp:
		return fs.jump(i.Target)
	case instr.JmpCC:
		if fs.holds(i.Cond) {
			return fs.jump(i.Target)
		}
		return nil
	case instr.Call:
		return fs.runCall(i)
	case instr.Ret:
		fs.returned = true
		return nil
	default:
		return errors.New("unsupported instruction %T", i)
	}
}

func (fs *FunctionalSimulator) runMov(m instr.Mov) error {
	v, err := fs.load(m.Src)
	if err != nil {
		return err
	}

	return fs.store(m.Dst, v)
}

func (fs *FunctionalSimulator) runBinary(b instr.Binary) error {
	left, err := fs.load(b.Dst)
	if err != nil {
		return err
	}

	right, err := fs.load(b.Src)
	if err != nil {
		return err
	}

	var v int64
	switch b.Op {
	case instr.OpAdd:
		v = left + right
	case instr.OpSub:
		v = left - right
	case instr.OpImul:
		v = left * right
	case instr.OpAnd:
		v = left & right
	case instr.OpOr:
		v = left | right
	case instr.OpXor:
		v = left ^ right
	case instr.OpCmp:
		fs.cmpLeft, fs.cmpRight = left, right
		return nil
	default:
		return errors.New("unsupported opcode %v", b.Op)
	}

	return fs.store(b.Dst, v)
}

func (fs *FunctionalSimulator) runUnary(u instr.Unary) error {
	v, err := fs.read(u.Reg)
	if err != nil {
		return err
	}

	switch u.Op {
	case instr.OpNot:
		fs.write(u.Reg, ^v)
	case instr.OpNeg:
		fs.write(u.Reg, -v)
	default:
		return errors.New("unsupported opcode %v", u.Op)
	}

	return nil
}

func (fs *FunctionalSimulator) runSetCC(s instr.SetCC) error {
	v, err := fs.read(s.Reg)
	if err != nil {
		return err
	}

	v &^= 0xff
	if fs.holds(s.Cond) {
		v |= 1
	}
	fs.write(s.Reg, v)

	return nil
}

func (fs *FunctionalSimulator) runCall(c instr.Call) error {
	hook, ok := fs.calls[c.Target]
	if !ok {
		return errors.New("no callee registered for %v", c.Target)
	}

	args := make([]int64, 0, len(c.Arguments))
	for _, r := range c.Arguments {
		v, err := fs.read(r)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	for _, r := range c.Clobbers {
		fs.poisoned[r] = true
	}
	fs.write(returnRegister, hook(args))

	return nil
}

func (fs *FunctionalSimulator) holds(cc instr.ConditionCode) bool {
	l, r := fs.cmpLeft, fs.cmpRight
	switch cc {
	case instr.CondE:
		return l == r
	case instr.CondNE:
		return l != r
	case instr.CondL:
		return l < r
	case instr.CondG:
		return l > r
	case instr.CondLE:
		return l <= r
	case instr.CondGE:
		return l >= r
	}

	panic("unknown condition code " + string(cc))
}

func (fs *FunctionalSimulator) jump(l ir.Label) error {
	idx, ok := fs.labels[l]
	if !ok {
		return errors.New("jump to undefined label %v", l)
	}

	fs.pc = idx
	return nil
}

func (fs *FunctionalSimulator) read(r ir.Register) (int64, error) {
	if fs.poisoned[r] {
		return 0, errors.New("read of %v clobbered by a call", r)
	}

	v, ok := fs.regs[r]
	if !ok && !ir.IsHardware(r) {
		return 0, errors.New("read of undefined register %v", r)
	}

	return v, nil
}

func (fs *FunctionalSimulator) write(r ir.Register, v int64) {
	fs.regs[r] = v
	delete(fs.poisoned, r)
}

func (fs *FunctionalSimulator) address(m instr.Mem) (int64, error) {
	addr := m.Displacement
	if m.Base != ir.NoLabel {
		addr += fs.GlobalAddress(m.Base)
	}

	if m.BaseReg != nil {
		base, err := fs.read(m.BaseReg)
		if err != nil {
			return 0, err
		}
		addr += base
	}

	return addr, nil
}

func (fs *FunctionalSimulator) load(o instr.Operand) (int64, error) {
	switch o := o.(type) {
	case instr.Imm:
		return o.Value, nil
	case instr.Reg:
		return fs.read(o.Register)
	case instr.Mem:
		addr, err := fs.address(o)
		if err != nil {
			return 0, err
		}
		return fs.mem[addr], nil
	}

	return 0, errors.New("unsupported operand %T", o)
}

func (fs *FunctionalSimulator) store(o instr.Operand, v int64) error {
	switch o := o.(type) {
	case instr.Reg:
		fs.write(o.Register, v)
		return nil
	case instr.Mem:
		addr, err := fs.address(o)
		if err != nil {
			return err
		}
		fs.mem[addr] = v
		return nil
	}

	return errors.New("cannot store to %v", o)
}
