// Package cfg transforms control-flow graphs of IR blocks.
package cfg

import (
	"fmt"

	"github.com/oleiade/lane"

	"github.com/sarchlab/tilecc/ir"
)

// Compress merges every chain of sequential blocks in which each block but
// the first is reached from exactly one edge into a single block. The
// original graph is left untouched.
func Compress(root ir.Block) ir.Block {
	if root == nil {
		return nil
	}

	c := compressor{
		inDegree: countInDegrees(root),
		memo:     make(map[ir.Block]ir.Block),
	}

	return c.rebuild(root)
}

// countInDegrees counts the edges entering each block reachable from root.
// The entry counts as an edge into root.
func countInDegrees(root ir.Block) map[ir.Block]int {
	inDegree := map[ir.Block]int{root: 1}

	stack := lane.NewStack()
	stack.Push(root)

	for !stack.Empty() {
		b := stack.Pop().(ir.Block)
		for _, s := range ir.Successors(b) {
			if _, seen := inDegree[s]; !seen {
				stack.Push(s)
			}
			inDegree[s]++
		}
	}

	return inDegree
}

type compressor struct {
	inDegree map[ir.Block]int
	memo     map[ir.Block]ir.Block
}

func (c *compressor) rebuild(b ir.Block) ir.Block {
	if b == nil {
		return nil
	}
	if done, ok := c.memo[b]; ok {
		return done
	}

	switch b := b.(type) {
	case *ir.BranchBlock:
		out := &ir.BranchBlock{Condition: b.Condition}
		c.memo[b] = out
		out.True = c.rebuild(b.True)
		out.False = c.rebuild(b.False)
		return out

	case *ir.SequentialBlock:
		out := &ir.SequentialBlock{}
		c.memo[b] = out

		ops := append([]ir.Node(nil), b.Operations...)
		next := b.Next
		for {
			s, ok := next.(*ir.SequentialBlock)
			if !ok || c.inDegree[s] != 1 {
				break
			}
			ops = append(ops, s.Operations...)
			next = s.Next
		}

		out.Operations = ops
		out.Next = c.rebuild(next)
		return out

	default:
		panic(fmt.Sprintf("unknown block variant %T", b))
	}
}
