package core

import (
	"github.com/sarchlab/tilecc/config"
	"github.com/sarchlab/tilecc/isa"
)

// BackendBuilder can create new backends.
type BackendBuilder struct {
	catalogue *isa.ISA
	target    *config.Target
}

// WithISA sets the rule catalogue instructions are selected from.
func (b BackendBuilder) WithISA(catalogue *isa.ISA) BackendBuilder {
	b.catalogue = catalogue
	return b
}

// WithTarget sets the registers allocation may use.
func (b BackendBuilder) WithTarget(target *config.Target) BackendBuilder {
	b.target = target
	return b
}

// Build creates a backend. Missing parts default to the amd64 catalogue
// and the default target.
func (b BackendBuilder) Build(name string) *Backend {
	if b.catalogue == nil {
		b.catalogue = isa.AMD64()
	}
	if b.target == nil {
		b.target = config.DefaultTarget()
	}
	if len(b.target.Scratch) < config.MinScratch {
		panic("Need at least 2 scratch registers")
	}

	return &Backend{
		name:      name,
		catalogue: b.catalogue,
		target:    b.target,
	}
}
