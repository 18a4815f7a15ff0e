package pattern

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
)

// Match is the outcome of matching a pattern against a tree.
type Match struct {
	leaves  []ir.ValueNode
	values  map[Pattern]any
	written ir.Register
}

func newMatch() *Match {
	return &Match{values: make(map[Pattern]any)}
}

// Leaves lists the open leaves in the order the pattern visits them.
func (m *Match) Leaves() []ir.ValueNode {
	return m.leaves
}

// Value returns the value the pattern p captured. It panics if p did not
// take part in the match or captured a value of a different type.
func Value[T any](m *Match, p Pattern) T {
	v, ok := m.values[p]
	if !ok {
		panic(fmt.Sprintf("pattern %v captured nothing", p))
	}

	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("pattern %v captured %T, not %T", p, v, t))
	}

	return t
}

// Apply matches p against n.
func Apply(p Pattern, n ir.Node) (*Match, bool) {
	m := newMatch()
	if !p.match(n, m) {
		return nil, false
	}

	return m, true
}
