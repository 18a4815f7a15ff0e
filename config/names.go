package config

import (
	"strings"

	"github.com/mmcloughlin/avo/reg"
	"github.com/nikandfor/errors"

	"github.com/sarchlab/tilecc/ir"
)

var generalPurpose = []reg.Physical{
	reg.RAX, reg.RBX, reg.RCX, reg.RDX, reg.RSI, reg.RDI, reg.RBP, reg.RSP,
	reg.R8, reg.R9, reg.R10, reg.R11, reg.R12, reg.R13, reg.R14, reg.R15,
}

var byName = func() map[string]reg.Physical {
	m := make(map[string]reg.Physical)
	for _, r := range generalPurpose {
		m[ir.RegisterName(r)] = r
		m[strings.ToLower(r.Asm())] = r
	}

	return m
}()

// Lookup finds a 64-bit general purpose register by name. Both assembler
// names ("rax", "r10") and avo names ("AX", "R10") are accepted.
func Lookup(name string) (reg.Physical, error) {
	r, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.New("unknown register %q", name)
	}

	return r, nil
}

func lookupAll(names []string) ([]reg.Physical, error) {
	out := make([]reg.Physical, 0, len(names))
	for _, n := range names {
		r, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, nil
}
