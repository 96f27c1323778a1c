package rewriter

import "github.com/a2flo/floor-llvm/internal/cfgir"

// EliminateDegenerate repeatedly folds single-pred/single-succ,
// no-op, no-phi nodes into their successor (spec.md §4.6
// "Degenerate-block elimination"), skipping the entry block (which must
// remain addressable even if it happens to be a pure passthrough) and any
// node currently serving as a structured merge or continue target (the IR
// translator needs a stable block to hang the merge annotation on). A node
// whose single predecessor has more than one successor (an arm of a
// conditional or switch) is not folded either, since folding it would
// give the successor two edges from the same predecessor that its phis
// cannot tell apart. It reports whether any fold happened, for the
// driver's dirty bit.
func EliminateDegenerate(pool *cfgir.Pool, entry *cfgir.Node) bool {
	dirty := false
	for {
		var target *cfgir.Node
		pool.ForEach(func(n *cfgir.Node) bool {
			if n == entry || isMergeOrContinueTarget(pool, n) {
				return true
			}
			if isFoldCandidate(n) {
				target = n
				return false
			}
			return true
		})
		if target == nil {
			return dirty
		}
		if !MergeToSucc(pool, target) {
			return dirty
		}
		dirty = true
	}
}

func isFoldCandidate(n *cfgir.Node) bool {
	if len(n.Preds) != 1 || len(n.Succs) != 1 || len(n.Ops) != 0 || len(n.Phis) != 0 {
		return false
	}
	_, ok := n.Terminator.(cfgir.Branch)
	return ok && n.Succs[0] != n && n.Preds[0] != n && len(n.Preds[0].Succs) == 1
}

func isMergeOrContinueTarget(pool *cfgir.Pool, n *cfgir.Node) bool {
	var referenced bool
	pool.ForEach(func(other *cfgir.Node) bool {
		mi := other.MergeInfo
		if mi.MergeBlock == n || mi.ContinueBlock == n || mi.SelectionMergeBlock == n {
			referenced = true
			return false
		}
		return true
	})
	return referenced
}
