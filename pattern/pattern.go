// Package pattern is a small language for describing the shapes of
// expression trees that one machine instruction sequence can implement.
//
// A pattern either consumes a node (matching its kind and, through
// predicates, the values embedded in it) or leaves it open with a
// Wildcard. Open leaves are covered separately and handed to the rule's
// generator as registers.
package pattern

import (
	"fmt"

	"github.com/sarchlab/tilecc/ir"
)

// Pattern matches the shape of an IR tree. Patterns are compared by
// identity, so captured values are looked up with the pattern value that
// captured them.
type Pattern interface {
	fmt.Stringer
	match(n ir.Node, m *Match) bool
}

// WildcardPattern matches any value node and leaves it open.
type WildcardPattern struct{}

// Wildcard creates a pattern that matches any value node.
func Wildcard() *WildcardPattern {
	return &WildcardPattern{}
}

func (p *WildcardPattern) match(n ir.Node, m *Match) bool {
	v, ok := n.(ir.ValueNode)
	if !ok {
		return false
	}
	m.leaves = append(m.leaves, v)
	return true
}

func (p *WildcardPattern) String() string { return "*" }

// ConstantPattern matches a constant and captures its value.
type ConstantPattern struct {
	pred Predicate[int64]
}

// Constant creates a pattern for constants accepted by pred.
func Constant(pred Predicate[int64]) *ConstantPattern {
	return &ConstantPattern{pred: pred}
}

func (p *ConstantPattern) match(n ir.Node, m *Match) bool {
	c, ok := n.(*ir.Constant)
	if !ok || !p.pred(c.Value, m) {
		return false
	}
	m.values[p] = c.Value
	return true
}

func (p *ConstantPattern) String() string { return "$const" }

// RegisterReadPattern matches a register read and captures the register.
type RegisterReadPattern struct {
	pred Predicate[ir.Register]
}

// RegisterRead creates a pattern for reads of registers accepted by pred.
func RegisterRead(pred Predicate[ir.Register]) *RegisterReadPattern {
	return &RegisterReadPattern{pred: pred}
}

func (p *RegisterReadPattern) match(n ir.Node, m *Match) bool {
	r, ok := n.(*ir.RegisterRead)
	if !ok || !p.pred(r.Register, m) {
		return false
	}
	m.values[p] = r.Register
	return true
}

func (p *RegisterReadPattern) String() string { return "$reg" }

// RegisterWritePattern matches a register write and captures the register.
type RegisterWritePattern struct {
	pred  Predicate[ir.Register]
	value Pattern
}

// RegisterWrite creates a pattern for writes of value into registers
// accepted by pred. The register is captured before value is matched.
func RegisterWrite(pred Predicate[ir.Register], value Pattern) *RegisterWritePattern {
	return &RegisterWritePattern{pred: pred, value: value}
}

func (p *RegisterWritePattern) match(n ir.Node, m *Match) bool {
	w, ok := n.(*ir.RegisterWrite)
	if !ok || !p.pred(w.Register, m) {
		return false
	}
	m.values[p] = w.Register
	m.written = w.Register
	return p.value.match(w.Value, m)
}

func (p *RegisterWritePattern) String() string {
	return fmt.Sprintf("$reg := %s", p.value)
}

// MemoryReadPattern matches a load.
type MemoryReadPattern struct {
	address Pattern
}

// MemoryRead creates a pattern for loads from address.
func MemoryRead(address Pattern) *MemoryReadPattern {
	return &MemoryReadPattern{address: address}
}

func (p *MemoryReadPattern) match(n ir.Node, m *Match) bool {
	r, ok := n.(*ir.MemoryRead)
	return ok && p.address.match(r.Address, m)
}

func (p *MemoryReadPattern) String() string {
	return fmt.Sprintf("[%s]", p.address)
}

// MemoryWritePattern matches a store.
type MemoryWritePattern struct {
	address, value Pattern
}

// MemoryWrite creates a pattern for stores of value at address.
func MemoryWrite(address, value Pattern) *MemoryWritePattern {
	return &MemoryWritePattern{address: address, value: value}
}

func (p *MemoryWritePattern) match(n ir.Node, m *Match) bool {
	w, ok := n.(*ir.MemoryWrite)
	return ok && p.address.match(w.Address, m) && p.value.match(w.Value, m)
}

func (p *MemoryWritePattern) String() string {
	return fmt.Sprintf("[%s] := %s", p.address, p.value)
}

// BinaryOpPattern matches a binary operation and captures the operator.
type BinaryOpPattern struct {
	op          Predicate[ir.BinaryOperator]
	left, right Pattern
}

// BinaryOp creates a pattern for binary operations accepted by op.
func BinaryOp(op Predicate[ir.BinaryOperator], left, right Pattern) *BinaryOpPattern {
	return &BinaryOpPattern{op: op, left: left, right: right}
}

func (p *BinaryOpPattern) match(n ir.Node, m *Match) bool {
	b, ok := n.(*ir.BinaryOp)
	if !ok || !p.op(b.Operator, m) {
		return false
	}
	m.values[p] = b.Operator
	return p.left.match(b.Left, m) && p.right.match(b.Right, m)
}

func (p *BinaryOpPattern) String() string {
	return fmt.Sprintf("(%s op %s)", p.left, p.right)
}

// UnaryOpPattern matches a unary operation and captures the operator.
type UnaryOpPattern struct {
	op      Predicate[ir.UnaryOperator]
	operand Pattern
}

// UnaryOp creates a pattern for unary operations accepted by op.
func UnaryOp(op Predicate[ir.UnaryOperator], operand Pattern) *UnaryOpPattern {
	return &UnaryOpPattern{op: op, operand: operand}
}

func (p *UnaryOpPattern) match(n ir.Node, m *Match) bool {
	u, ok := n.(*ir.UnaryOp)
	if !ok || !p.op(u.Operator, m) {
		return false
	}
	m.values[p] = u.Operator
	return p.operand.match(u.Operand, m)
}

func (p *UnaryOpPattern) String() string {
	return fmt.Sprintf("(op %s)", p.operand)
}

// GlobalAddressPattern matches the address of a label and captures the
// label.
type GlobalAddressPattern struct{}

// GlobalAddress creates a pattern for label addresses.
func GlobalAddress() *GlobalAddressPattern {
	return &GlobalAddressPattern{}
}

func (p *GlobalAddressPattern) match(n ir.Node, m *Match) bool {
	g, ok := n.(*ir.GlobalAddress)
	if !ok {
		return false
	}
	m.values[p] = g.Label
	return true
}

func (p *GlobalAddressPattern) String() string { return "$label" }

// CallPattern matches a call and captures the node.
type CallPattern struct{}

// Call creates a pattern for calls.
func Call() *CallPattern {
	return &CallPattern{}
}

func (p *CallPattern) match(n ir.Node, m *Match) bool {
	c, ok := n.(*ir.Call)
	if !ok {
		return false
	}
	m.values[p] = c
	return true
}

func (p *CallPattern) String() string { return "call" }

// ReturnPattern matches a return and captures the node.
type ReturnPattern struct{}

// Return creates a pattern for returns.
func Return() *ReturnPattern {
	return &ReturnPattern{}
}

func (p *ReturnPattern) match(n ir.Node, m *Match) bool {
	r, ok := n.(*ir.Return)
	if !ok {
		return false
	}
	m.values[p] = r
	return true
}

func (p *ReturnPattern) String() string { return "ret" }
