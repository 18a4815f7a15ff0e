package pattern

import (
	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
)

// Kind tells where a rule applies.
type Kind int

// Rule kinds.
const (
	// KindTree rules cover an operation or a value node.
	KindTree Kind = iota
	// KindJump rules emit the transfer at the end of a sequential block.
	KindJump
	// KindBranch rules cover the condition of a branch block and emit the
	// two-way transfer.
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindTree:
		return "tree"
	case KindJump:
		return "jump"
	case KindBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Emission is the input of a rule's generator.
type Emission struct {
	// Inputs holds the registers computed for the open leaves, in match
	// order.
	Inputs []ir.Register
	// Match gives access to captured values.
	Match *Match
	// Next is the continuation of a sequential block, or ir.NoLabel.
	Next ir.Label
	// True and False are the targets of a branch.
	True, False ir.Label
}

// Generator produces the instructions of a rule. It returns the register
// holding the value of the covered node, or nil for statements.
type Generator func(e Emission) ([]instr.Instruction, ir.Register)

// Rule pairs a pattern with the code implementing it.
type Rule struct {
	Name     string
	Kind     Kind
	Pattern  Pattern
	Generate Generator
}

// Tree creates a rule covering nodes matched by p.
func Tree(name string, p Pattern, g Generator) Rule {
	return Rule{Name: name, Kind: KindTree, Pattern: p, Generate: g}
}

// Jump creates a rule for the end of sequential blocks.
func Jump(name string, g func(next ir.Label) []instr.Instruction) Rule {
	return Rule{
		Name: name,
		Kind: KindJump,
		Generate: func(e Emission) ([]instr.Instruction, ir.Register) {
			return g(e.Next), nil
		},
	}
}

// Branch creates a rule covering branch conditions matched by p.
func Branch(name string, p Pattern, g func(e Emission) []instr.Instruction) Rule {
	return Rule{
		Name:    name,
		Kind:    KindBranch,
		Pattern: p,
		Generate: func(e Emission) ([]instr.Instruction, ir.Register) {
			return g(e), nil
		},
	}
}
