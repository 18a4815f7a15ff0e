// Package cover selects instructions for expression trees. It tiles every
// tree with rules of an instruction set so that the number of tiles is
// minimal.
package cover

import (
	"fmt"

	"github.com/sarchlab/tilecc/instr"
	"github.com/sarchlab/tilecc/ir"
	"github.com/sarchlab/tilecc/isa"
	"github.com/sarchlab/tilecc/pattern"
)

// tile is the cheapest way found to cover one node.
type tile struct {
	rule   *pattern.Rule
	match  *pattern.Match
	leaves []*tile
	cost   int
}

// Covering tiles the trees of one function. Results are memoized by node
// identity, so a Covering must not outlive the function it was made for.
type Covering struct {
	catalogue *isa.ISA
	tree      []pattern.Rule
	jump      []pattern.Rule
	branch    []pattern.Rule

	memo       map[ir.Node]*tile
	branchMemo map[ir.Node]*tile
}

// New creates a Covering over the rules of catalogue.
func New(catalogue *isa.ISA) *Covering {
	return &Covering{
		catalogue:  catalogue,
		tree:       catalogue.Rules(pattern.KindTree),
		jump:       catalogue.Rules(pattern.KindJump),
		branch:     catalogue.Rules(pattern.KindBranch),
		memo:       make(map[ir.Node]*tile),
		branchMemo: make(map[ir.Node]*tile),
	}
}

// Cost returns the number of tiles needed to cover n, or -1 when no rule
// covers it.
func (c *Covering) Cost(n ir.Node) int {
	t := c.best(n)
	if t == nil {
		return -1
	}

	return t.cost
}

// RuleFor returns the name of the rule selected for the root of n.
func (c *Covering) RuleFor(n ir.Node) string {
	return c.mustBest(n).rule.Name
}

// CoverSequence emits the operations of b followed by a transfer to next.
// next is ir.NoLabel when control leaves the function or falls off the
// block.
func (c *Covering) CoverSequence(b *ir.SequentialBlock, next ir.Label) []instr.Instruction {
	out := c.CoverOperations(b.Operations)

	if len(c.jump) == 0 {
		panic(fmt.Sprintf("%s has no jump rule", c.catalogue.Name()))
	}

	jumps, _ := c.jump[0].Generate(pattern.Emission{Next: next})

	return append(out, jumps...)
}

// CoverBranch emits the evaluation of the condition of b and a transfer to
// trueLabel or falseLabel.
func (c *Covering) CoverBranch(b *ir.BranchBlock, trueLabel, falseLabel ir.Label) []instr.Instruction {
	t := c.bestBranch(b.Condition)
	if t == nil {
		panic(fmt.Sprintf("%s has no branch rule for condition %s", c.catalogue.Name(), b.Condition))
	}

	var out []instr.Instruction
	inputs := c.emitLeaves(t, &out)
	insts, _ := t.rule.Generate(pattern.Emission{
		Inputs: inputs,
		Match:  t.match,
		True:   trueLabel,
		False:  falseLabel,
	})

	return append(out, insts...)
}

// CoverOperations emits the operations in order.
func (c *Covering) CoverOperations(ops []ir.Node) []instr.Instruction {
	var out []instr.Instruction
	for _, op := range ops {
		c.emit(c.mustBest(op), &out)
	}

	return out
}

// CoverValue emits the computation of v and returns the register holding
// it.
func (c *Covering) CoverValue(v ir.ValueNode) ([]instr.Instruction, ir.Register) {
	var out []instr.Instruction
	r := c.emit(c.mustBest(v), &out)

	return out, r
}

func (c *Covering) mustBest(n ir.Node) *tile {
	t := c.best(n)
	if t == nil {
		panic(fmt.Sprintf("%s has no rule covering %T %s", c.catalogue.Name(), n, n))
	}

	return t
}

func (c *Covering) best(n ir.Node) *tile {
	if t, ok := c.memo[n]; ok {
		return t
	}

	t := c.cheapest(c.tree, n)
	c.memo[n] = t

	return t
}

func (c *Covering) bestBranch(cond ir.ValueNode) *tile {
	if t, ok := c.branchMemo[cond]; ok {
		return t
	}

	t := c.cheapest(c.branch, cond)
	c.branchMemo[cond] = t

	return t
}

// cheapest returns the matching rule with the lowest cost. The first
// declared rule wins a tie.
func (c *Covering) cheapest(rules []pattern.Rule, n ir.Node) *tile {
	var winner *tile

candidates:
	for i := range rules {
		m, ok := pattern.Apply(rules[i].Pattern, n)
		if !ok {
			continue
		}

		t := &tile{rule: &rules[i], match: m, cost: 1}
		for _, leaf := range m.Leaves() {
			lt := c.best(leaf)
			if lt == nil {
				continue candidates
			}
			t.leaves = append(t.leaves, lt)
			t.cost += lt.cost
		}

		if winner == nil || t.cost < winner.cost {
			winner = t
		}
	}

	return winner
}

func (c *Covering) emitLeaves(t *tile, out *[]instr.Instruction) []ir.Register {
	inputs := make([]ir.Register, len(t.leaves))
	for i, lt := range t.leaves {
		inputs[i] = c.emit(lt, out)
		if inputs[i] == nil {
			panic(fmt.Sprintf("rule %q produced no value for a leaf of rule %q",
				lt.rule.Name, t.rule.Name))
		}
	}

	return inputs
}

func (c *Covering) emit(t *tile, out *[]instr.Instruction) ir.Register {
	inputs := c.emitLeaves(t, out)
	insts, result := t.rule.Generate(pattern.Emission{Inputs: inputs, Match: t.match})
	*out = append(*out, insts...)

	return result
}
