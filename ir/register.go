package ir

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/mmcloughlin/avo/reg"
)

// Register is a storage cell an instruction can read or write. It is either a
// VirtualRegister or a HardwareRegister. Both are comparable and can be used
// as map keys.
type Register interface {
	fmt.Stringer
	register()
}

var nextRegisterID atomic.Uint64

// VirtualRegister is an abstract register from an unbounded supply.
type VirtualRegister struct {
	id uint64
}

// NewRegister returns a virtual register that is distinct from every other
// virtual register in the process.
func NewRegister() VirtualRegister {
	return VirtualRegister{id: nextRegisterID.Add(1)}
}

func (VirtualRegister) register() {}

// ID returns the numeric identity of the register.
func (v VirtualRegister) ID() uint64 {
	return v.id
}

func (v VirtualRegister) String() string {
	return fmt.Sprintf("%%v%d", v.id)
}

// HardwareRegister is one of the target's physical registers. Two values
// are equal when they name the same physical register.
type HardwareRegister struct {
	id   reg.ID
	name string
}

// Hardware wraps a physical register.
func Hardware(p reg.Physical) HardwareRegister {
	if p == nil {
		panic("nil physical register")
	}

	return HardwareRegister{id: p.ID(), name: RegisterName(p)}
}

func (HardwareRegister) register() {}

// ID returns the avo identifier of the register.
func (h HardwareRegister) ID() reg.ID {
	return h.id
}

// String returns the lower-case 64-bit name, e.g. "rax" or "r10".
func (h HardwareRegister) String() string {
	return h.name
}

// RegisterName converts the avo name of a general purpose register ("AX",
// "R10") into its 64-bit assembler name ("rax", "r10").
func RegisterName(p reg.Physical) string {
	name := strings.ToLower(p.Asm())
	if len(name) == 2 && name[0] != 'r' {
		return "r" + name
	}

	return name
}

// IsHardware reports whether r is a physical register.
func IsHardware(r Register) bool {
	_, ok := r.(HardwareRegister)
	return ok
}
