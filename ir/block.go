package ir

import "fmt"

// Block is a node of a function's control-flow graph.
type Block interface {
	block()
}

// SequentialBlock runs its operations in order, then continues with Next.
// Next is nil only at the exit of a function.
type SequentialBlock struct {
	Operations []Node
	Next       Block
}

// BranchBlock evaluates Condition and continues with True when it is
// non-zero, with False otherwise.
type BranchBlock struct {
	Condition ValueNode
	True      Block
	False     Block
}

func (*SequentialBlock) block() {}
func (*BranchBlock) block()     {}

// Successors lists the blocks control may continue with after b.
func Successors(b Block) []Block {
	switch b := b.(type) {
	case *SequentialBlock:
		if b.Next == nil {
			return nil
		}
		return []Block{b.Next}
	case *BranchBlock:
		return []Block{b.True, b.False}
	default:
		panic(fmt.Sprintf("unknown block variant %T", b))
	}
}

// Reachable lists every block reachable from root in depth-first preorder.
func Reachable(root Block) []Block {
	var order []Block
	seen := make(map[Block]bool)

	var visit func(b Block)
	visit = func(b Block) {
		if b == nil || seen[b] {
			return
		}
		seen[b] = true
		order = append(order, b)
		for _, s := range Successors(b) {
			visit(s)
		}
	}
	visit(root)

	return order
}
