// Package config describes the register set a compilation targets.
package config

import (
	"fmt"

	"github.com/mmcloughlin/avo/reg"
	"github.com/nikandfor/errors"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tilecc/ir"
)

// MinScratch is the number of scratch registers spill code needs.
const MinScratch = 2

// PaletteSizeEnv limits the number of registers handed out when set.
const PaletteSizeEnv = "TILECC_PALETTE_SIZE"

// Target lists the registers the allocator may use.
type Target struct {
	Name string

	// Palette holds the registers virtual registers may be assigned, in
	// order of preference.
	Palette []ir.HardwareRegister

	// Scratch holds the registers reserved for spill code.
	Scratch []ir.HardwareRegister
}

// Reduced returns the palette without the scratch registers.
func (t *Target) Reduced() []ir.HardwareRegister {
	var out []ir.HardwareRegister
	for _, r := range t.Palette {
		if !contains(t.Scratch, r) {
			out = append(out, r)
		}
	}

	return out
}

// TargetBuilder can build targets.
type TargetBuilder struct {
	registers []reg.Physical
	scratch   []reg.Physical
	useEnv    bool
}

// WithRegisters sets the palette.
func (b TargetBuilder) WithRegisters(rs ...reg.Physical) TargetBuilder {
	for _, r := range rs {
		if !Allocatable(r) {
			panic(fmt.Sprintf("register %s cannot be allocated", r.Asm()))
		}
	}

	b.registers = rs
	return b
}

// WithScratch sets the registers reserved for spill code.
func (b TargetBuilder) WithScratch(rs ...reg.Physical) TargetBuilder {
	if len(rs) < MinScratch {
		panic(fmt.Sprintf("need at least %d scratch registers", MinScratch))
	}

	b.scratch = rs
	return b
}

// WithEnv makes the target honor PaletteSizeEnv.
func (b TargetBuilder) WithEnv() TargetBuilder {
	b.useEnv = true
	return b
}

// Build creates a target.
func (b TargetBuilder) Build(name string) *Target {
	t := &Target{Name: name}

	registers := b.registers
	if registers == nil {
		registers = DefaultRegisters()
	}
	for _, r := range registers {
		t.Palette = append(t.Palette, ir.Hardware(r))
	}

	scratch := b.scratch
	if scratch == nil {
		scratch = DefaultScratch()
	}
	for _, r := range scratch {
		t.Scratch = append(t.Scratch, ir.Hardware(r))
	}

	if b.useEnv {
		if n := env.Int(PaletteSizeEnv, len(t.Palette)); n >= 0 && n < len(t.Palette) {
			t.Palette = t.Palette[:n]
		}
	}

	return t
}

// DefaultRegisters returns every general purpose register except the stack
// and frame pointers.
func DefaultRegisters() []reg.Physical {
	return []reg.Physical{
		reg.RAX, reg.RBX, reg.RCX, reg.RDX, reg.RSI, reg.RDI,
		reg.R8, reg.R9, reg.R10, reg.R11,
		reg.R12, reg.R13, reg.R14, reg.R15,
	}
}

// DefaultScratch returns the registers spill code uses by default.
func DefaultScratch() []reg.Physical {
	return []reg.Physical{reg.R10, reg.R11}
}

// DefaultTarget returns the target built from the defaults and the
// environment.
func DefaultTarget() *Target {
	return TargetBuilder{}.WithEnv().Build("amd64")
}

// Allocatable tells if a register may hold virtual registers.
func Allocatable(r reg.Physical) bool {
	if r.Info()&reg.Restricted != 0 {
		return false
	}

	return r.ID() != reg.RBP.ID()
}

type targetFile struct {
	Name      string   `yaml:"name"`
	Registers []string `yaml:"registers"`
	Scratch   []string `yaml:"scratch"`
}

// LoadTargetFromYAML builds a target from a document such as
//
//	name: small
//	registers: [rax, rbx, rcx, r10, r11]
//	scratch: [r10, r11]
//
// Omitted lists fall back to the defaults.
func LoadTargetFromYAML(data []byte) (*Target, error) {
	var f targetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse target")
	}

	if f.Name == "" {
		f.Name = "amd64"
	}

	b := TargetBuilder{}

	if f.Registers != nil {
		rs, err := lookupAll(f.Registers)
		if err != nil {
			return nil, errors.Wrap(err, "target %v registers", f.Name)
		}
		for _, r := range rs {
			if !Allocatable(r) {
				return nil, errors.New("target %v: register %v cannot be allocated", f.Name, r.Asm())
			}
		}
		if len(rs) == 0 {
			return nil, errors.New("target %v: empty register list", f.Name)
		}
		b.registers = rs
	}

	if f.Scratch != nil {
		rs, err := lookupAll(f.Scratch)
		if err != nil {
			return nil, errors.Wrap(err, "target %v scratch", f.Name)
		}
		if len(rs) < MinScratch {
			return nil, errors.New("target %v: need at least %d scratch registers, got %d",
				f.Name, MinScratch, len(rs))
		}
		b.scratch = rs
	}

	return b.Build(f.Name), nil
}

func contains(rs []ir.HardwareRegister, r ir.HardwareRegister) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}

	return false
}
