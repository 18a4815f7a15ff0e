// Package ir defines the intermediate representation consumed by the
// backend: expression trees of nodes grouped into basic blocks.
//
// Nodes and blocks are always handled through pointers. Analyses key their
// tables by pointer identity, so two structurally identical trees are never
// confused with each other.
package ir

import (
	"fmt"
	"strings"
)

// Node is a node of an expression tree.
type Node interface {
	fmt.Stringer
	node()
}

// ValueNode is a node that produces a value.
type ValueNode interface {
	Node
	valueNode()
}

// BinaryOperator is the operator of a BinaryOp node.
type BinaryOperator int

// Binary operators.
const (
	Add BinaryOperator = iota
	Sub
	Mul
	BitAnd
	BitOr
	BitXor
	Equal
	NotEqual
	Less
	Greater
	LessEqual
	GreaterEqual
)

var binaryOperatorNames = map[BinaryOperator]string{
	Add:          "+",
	Sub:          "-",
	Mul:          "*",
	BitAnd:       "&",
	BitOr:        "|",
	BitXor:       "^",
	Equal:        "==",
	NotEqual:     "!=",
	Less:         "<",
	Greater:      ">",
	LessEqual:    "<=",
	GreaterEqual: ">=",
}

func (o BinaryOperator) String() string {
	if name, ok := binaryOperatorNames[o]; ok {
		return name
	}

	return fmt.Sprintf("BinaryOperator(%d)", int(o))
}

// IsComparison reports whether the operator yields a boolean.
func (o BinaryOperator) IsComparison() bool {
	return o >= Equal && o <= GreaterEqual
}

// UnaryOperator is the operator of a UnaryOp node.
type UnaryOperator int

// Unary operators.
const (
	Not UnaryOperator = iota
	Negate
)

func (o UnaryOperator) String() string {
	switch o {
	case Not:
		return "~"
	case Negate:
		return "neg "
	default:
		return fmt.Sprintf("UnaryOperator(%d)", int(o))
	}
}

// Constant is an immediate value.
type Constant struct {
	Value int64
}

// RegisterRead reads a register.
type RegisterRead struct {
	Register Register
}

// MemoryRead loads a word from the address computed by Address.
type MemoryRead struct {
	Address ValueNode
}

// BinaryOp combines two values.
type BinaryOp struct {
	Operator    BinaryOperator
	Left, Right ValueNode
}

// UnaryOp transforms one value.
type UnaryOp struct {
	Operator UnaryOperator
	Operand  ValueNode
}

// GlobalAddress is the address of a label, e.g. a static data section.
type GlobalAddress struct {
	Label Label
}

// Call transfers control to a function. Arguments are placed in the
// argument registers by preceding writes; Arguments tells how many of them
// the callee reads. As a value, a call yields the return register.
type Call struct {
	Target    Label
	Arguments int
}

// RegisterWrite stores a value into a register.
type RegisterWrite struct {
	Register Register
	Value    ValueNode
}

// MemoryWrite stores a value at the address computed by Address.
type MemoryWrite struct {
	Address ValueNode
	Value   ValueNode
}

// Return leaves the function. When HasValue is set the return register
// carries the result.
type Return struct {
	HasValue bool
}

func (*Constant) node()      {}
func (*RegisterRead) node()  {}
func (*MemoryRead) node()    {}
func (*BinaryOp) node()      {}
func (*UnaryOp) node()       {}
func (*GlobalAddress) node() {}
func (*Call) node()          {}
func (*RegisterWrite) node() {}
func (*MemoryWrite) node()   {}
func (*Return) node()        {}

func (*Constant) valueNode()      {}
func (*RegisterRead) valueNode()  {}
func (*MemoryRead) valueNode()    {}
func (*BinaryOp) valueNode()      {}
func (*UnaryOp) valueNode()       {}
func (*GlobalAddress) valueNode() {}
func (*Call) valueNode()          {}

func (n *Constant) String() string { return fmt.Sprintf("%d", n.Value) }

func (n *RegisterRead) String() string { return n.Register.String() }

func (n *MemoryRead) String() string { return fmt.Sprintf("[%s]", n.Address) }

func (n *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Operator, n.Right)
}

func (n *UnaryOp) String() string {
	return fmt.Sprintf("(%s%s)", n.Operator, n.Operand)
}

func (n *GlobalAddress) String() string { return "&" + string(n.Label) }

func (n *Call) String() string {
	return fmt.Sprintf("call %s/%d", n.Target, n.Arguments)
}

func (n *RegisterWrite) String() string {
	return fmt.Sprintf("%s := %s", n.Register, n.Value)
}

func (n *MemoryWrite) String() string {
	return fmt.Sprintf("[%s] := %s", n.Address, n.Value)
}

func (n *Return) String() string {
	if n.HasValue {
		return "return value"
	}

	return "return"
}

// Const creates a Constant node.
func Const(v int64) *Constant {
	return &Constant{Value: v}
}

// Read creates a RegisterRead node.
func Read(r Register) *RegisterRead {
	return &RegisterRead{Register: r}
}

// Write creates a RegisterWrite node.
func Write(r Register, v ValueNode) *RegisterWrite {
	return &RegisterWrite{Register: r, Value: v}
}

// Load creates a MemoryRead node.
func Load(addr ValueNode) *MemoryRead {
	return &MemoryRead{Address: addr}
}

// Store creates a MemoryWrite node.
func Store(addr, v ValueNode) *MemoryWrite {
	return &MemoryWrite{Address: addr, Value: v}
}

// Binary creates a BinaryOp node.
func Binary(op BinaryOperator, l, r ValueNode) *BinaryOp {
	return &BinaryOp{Operator: op, Left: l, Right: r}
}

// Unary creates a UnaryOp node.
func Unary(op UnaryOperator, v ValueNode) *UnaryOp {
	return &UnaryOp{Operator: op, Operand: v}
}

// FormatOperations renders a list of operations one per line.
func FormatOperations(ops []Node) string {
	var sb strings.Builder
	for i, op := range ops {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(op.String())
	}

	return sb.String()
}
