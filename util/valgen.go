// Package valgen generates values and test programs using closures.
package valgen

import (
	"github.com/sarchlab/tilecc/ir"
)

func MakeConstGen(constant int) func() int {
	return func() int {
		return constant
	}
}

func MakeIncreasingGen(start int) func() int {
	current := start
	return func() int {
		current++
		return current
	}
}

// MakeLCGGen returns a deterministic pseudo-random generator of
// non-negative values.
func MakeLCGGen(seed uint32) func() int {
	state := seed
	return func() int {
		state = state*1664525 + 1013904223
		return int(state >> 1)
	}
}

var folds = []struct {
	op   ir.BinaryOperator
	eval func(a, b int64) int64
}{
	{ir.Add, func(a, b int64) int64 { return a + b }},
	{ir.Sub, func(a, b int64) int64 { return a - b }},
	{ir.Mul, func(a, b int64) int64 { return a * b }},
	{ir.BitAnd, func(a, b int64) int64 { return a & b }},
	{ir.BitOr, func(a, b int64) int64 { return a | b }},
	{ir.BitXor, func(a, b int64) int64 { return a ^ b }},
}

// Expression builds a function body that defines n values drawn from gen,
// keeps them all alive, folds them with operators drawn from gen and
// returns the result in ret. It also returns the value the body computes.
func Expression(gen func() int, n int, ret ir.Register) (ir.Block, int64) {
	if n < 1 {
		panic("need at least one value")
	}

	values := make([]ir.VirtualRegister, n)
	consts := make([]int64, n)
	var ops []ir.Node
	for i := range values {
		values[i] = ir.NewRegister()
		consts[i] = int64(gen() % 100)
		ops = append(ops, ir.Write(values[i], ir.Const(consts[i])))
	}

	acc := ir.NewRegister()
	want := consts[0]
	ops = append(ops, ir.Write(acc, ir.Read(values[0])))
	for i, v := range values[1:] {
		f := folds[gen()%len(folds)]
		want = f.eval(want, consts[i+1])
		ops = append(ops, ir.Write(acc, ir.Binary(f.op, ir.Read(acc), ir.Read(v))))
	}

	ops = append(ops, ir.Write(ret, ir.Read(acc)), &ir.Return{HasValue: true})

	return &ir.SequentialBlock{Operations: ops}, want
}
