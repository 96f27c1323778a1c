package rewriter

import "github.com/a2flo/floor-llvm/internal/cfgir"

// PruneDeadPredecessors removes every node not reachable from entry,
// severing its edges and deleting its phi entries first (spec.md §4.6
// "Dead-predecessor pruning"). Unreachable input blocks are silently
// dropped per spec.md §7's failure semantics — this is not an error.
//
// A node kept alive only as a loop/selection merge or continue target
// (e.g. the synthesized unreachable merge of an infinite loop, spec.md
// §4.4) survives even with zero edges: it carries no control flow of its
// own, but the header's MergeInfo still needs to resolve to a real block
// at emission time.
func PruneDeadPredecessors(pool *cfgir.Pool, entry *cfgir.Node) {
	reachable := map[*cfgir.Node]bool{entry: true}
	stack := []*cfgir.Node{entry}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Succs {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}
	pool.ForEach(func(n *cfgir.Node) bool {
		mi := n.MergeInfo
		for _, target := range []*cfgir.Node{mi.MergeBlock, mi.ContinueBlock, mi.SelectionMergeBlock} {
			if target != nil {
				reachable[target] = true
			}
		}
		return true
	})
	pool.PruneUnreachable(reachable)
}
