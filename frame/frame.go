// Package frame lays out the stack frame of one function and produces the
// IR that sets it up and tears it down.
//
// The frame pointer addresses the frame. Parameters passed on the stack sit
// above it, slots below:
//
//	[rbp + 16 + 8*k]  stack parameter k
//	[rbp + 8]         return address
//	[rbp]             caller's rbp
//	[rbp - 8*(k+1)]   slot k
package frame

import (
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
)

// WordSize is the size in bytes of a slot.
const WordSize = 8

// StackAlignment is the alignment of the stack pointer at call sites.
const StackAlignment = 16

// Slot is a word of the frame.
type Slot struct {
	frame  *Frame
	offset int64
}

// Offset returns the displacement of the slot from the frame pointer.
func (s Slot) Offset() int64 {
	return s.offset
}

// Address returns IR computing the address of the slot.
func (s Slot) Address() ir.ValueNode {
	op := ir.Add
	d := s.offset
	if d < 0 {
		op = ir.Sub
		d = -d
	}

	return ir.Binary(op, ir.Read(s.frame.conv.FramePointer), ir.Const(d))
}

// Read returns IR loading the slot.
func (s Slot) Read() ir.ValueNode {
	return ir.Load(s.Address())
}

// Write returns IR storing v into the slot.
func (s Slot) Write(v ir.ValueNode) ir.Node {
	return ir.Store(s.Address(), v)
}

// Frame is the context of one function being compiled.
type Frame struct {
	label ir.Label
	conv  isa.Convention
	slots int
}

// New creates an empty frame for the function entered at label.
func New(label ir.Label, conv isa.Convention) *Frame {
	return &Frame{label: label, conv: conv}
}

// Label returns the entry label of the function.
func (f *Frame) Label() ir.Label {
	return f.label
}

// AllocateSlot reserves a new word in the frame.
func (f *Frame) AllocateSlot() Slot {
	f.slots++
	return Slot{frame: f, offset: -int64(f.slots) * WordSize}
}

// Parameter returns the location of the k-th parameter passed on the stack.
func (f *Frame) Parameter(k int) Slot {
	return Slot{frame: f, offset: 2*WordSize + int64(k)*WordSize}
}

// Slots returns the number of slots allocated so far.
func (f *Frame) Slots() int {
	return f.slots
}

// Size returns the number of bytes to reserve below the frame pointer,
// keeping the stack aligned.
func (f *Frame) Size() int64 {
	size := int64(f.slots) * WordSize
	if rem := size % StackAlignment; rem != 0 {
		size += StackAlignment - rem
	}

	return size
}

// Saved pairs a callee-saved register with the slot preserving it.
type Saved struct {
	Register ir.HardwareRegister
	Slot     Slot
}

// Save allocates slots for the callee-saved registers among used.
func (f *Frame) Save(used []ir.HardwareRegister) []Saved {
	var out []Saved
	for _, r := range f.conv.CalleeSaved {
		for _, u := range used {
			if u == r {
				out = append(out, Saved{Register: r, Slot: f.AllocateSlot()})
				break
			}
		}
	}

	return out
}

// Prologue returns the operations that set up the frame and save
// registers. Allocate every slot, including the saved ones, before calling
// it.
func (f *Frame) Prologue(saved []Saved) []ir.Node {
	sp := f.conv.StackPointer
	fp := f.conv.FramePointer

	ops := []ir.Node{
		ir.Write(sp, ir.Binary(ir.Sub, ir.Read(sp), ir.Const(WordSize))),
		ir.Store(ir.Read(sp), ir.Read(fp)),
		ir.Write(fp, ir.Read(sp)),
	}
	if size := f.Size(); size > 0 {
		ops = append(ops, ir.Write(sp, ir.Binary(ir.Sub, ir.Read(sp), ir.Const(size))))
	}
	for _, s := range saved {
		ops = append(ops, s.Slot.Write(ir.Read(s.Register)))
	}

	return ops
}

// Epilogue returns the operations that restore saved registers and tear
// the frame down. They run right before returning.
func (f *Frame) Epilogue(saved []Saved) []ir.Node {
	sp := f.conv.StackPointer
	fp := f.conv.FramePointer

	var ops []ir.Node
	for _, s := range saved {
		ops = append(ops, ir.Write(s.Register, s.Slot.Read()))
	}

	return append(ops,
		ir.Write(sp, ir.Read(fp)),
		ir.Write(fp, ir.Load(ir.Read(sp))),
		ir.Write(sp, ir.Binary(ir.Add, ir.Read(sp), ir.Const(WordSize))),
	)
}
