// Package isa holds instruction set descriptions: ordered catalogues of
// covering rules together with the calling convention of the target.
package isa

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/pattern"
)

// ISA is an ordered rule catalogue. Earlier rules win ties.
type ISA struct {
	name  string
	rules []pattern.Rule

	// Convention describes how functions of this target call each other.
	Convention Convention
}

// Convention lists the registers with a fixed role in calls.
type Convention struct {
	Arguments    []ir.HardwareRegister
	CallerSaved  []ir.HardwareRegister
	CalleeSaved  []ir.HardwareRegister
	Return       ir.HardwareRegister
	StackPointer ir.HardwareRegister
	FramePointer ir.HardwareRegister
}

// NewISA creates an empty catalogue.
func NewISA(name string) *ISA {
	return &ISA{name: name}
}

// Name returns the name of the instruction set.
func (isa *ISA) Name() string {
	return isa.name
}

// Register appends rules to the catalogue.
func (isa *ISA) Register(rules ...pattern.Rule) *ISA {
	for _, r := range rules {
		if r.Generate == nil {
			panic(fmt.Sprintf("rule %q of %s has no generator", r.Name, isa.name))
		}
		if r.Kind != pattern.KindJump && r.Pattern == nil {
			panic(fmt.Sprintf("rule %q of %s has no pattern", r.Name, isa.name))
		}
		isa.rules = append(isa.rules, r)
	}

	return isa
}

// Rules returns the rules of the given kind in declaration order.
func (isa *ISA) Rules(kind pattern.Kind) []pattern.Rule {
	var out []pattern.Rule
	for _, r := range isa.rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}

	return out
}

// Len returns the number of rules.
func (isa *ISA) Len() int {
	return len(isa.rules)
}
