package structurize

import (
	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/rewriter"
	"github.com/a2flo/floor-llvm/internal/selection"
)

// resolveImpossibleMergeConstructs implements spec.md §4.6's "duplication
// of impossible merge constructs": two headers in no dominance relationship
// to each other cannot legally share one physical merge block as their
// unique convergence point, even though post-dominance computed the same
// node for both. The header with the lower forward post-visit index keeps
// the original; the predecessors the other header's construct dominates
// are rewired onto a fresh duplicate (C6 DuplicateNode).
func resolveImpossibleMergeConstructs(pool *cfgir.Pool) bool {
	claims := map[*cfgir.Node][]*cfgir.Node{}
	pool.ForEach(func(n *cfgir.Node) bool {
		switch n.Merge {
		case cfgir.MergeLoop:
			if n.MergeInfo.MergeBlock != nil {
				claims[n.MergeInfo.MergeBlock] = append(claims[n.MergeInfo.MergeBlock], n)
			}
		case cfgir.MergeSelection:
			if n.MergeInfo.SelectionMergeBlock != nil {
				claims[n.MergeInfo.SelectionMergeBlock] = append(claims[n.MergeInfo.SelectionMergeBlock], n)
			}
		}
		return true
	})

	dirty := false
	for merge, headers := range claims {
		if len(headers) < 2 {
			continue
		}
		for i := 0; i < len(headers); i++ {
			for j := i + 1; j < len(headers); j++ {
				if resolvePair(pool, merge, headers[i], headers[j]) {
					dirty = true
				}
			}
		}
	}
	return dirty
}

func resolvePair(pool *cfgir.Pool, merge, a, b *cfgir.Node) bool {
	if a.Dominates(b) || b.Dominates(a) {
		return false // nested constructs may legitimately share a merge
	}
	if !rewriter.CanDuplicatePhis(merge) {
		return false
	}

	// The header with the lower forward post-visit index keeps the
	// original merge block; the other gets a duplicate (spec.md §4.5's
	// tie-break, reused here per §4.6 since both are "pick the
	// deterministic winner among competing claimants" questions).
	keep := selection.TieBreak([]*cfgir.Node{a, b})
	other := a
	if keep == a {
		other = b
	}

	var rewire []*cfgir.Node
	for _, p := range merge.Preds {
		if other.Dominates(p) {
			rewire = append(rewire, p)
		}
	}
	if len(rewire) == 0 {
		return false
	}

	dup := rewriter.DuplicateNode(pool, merge, rewire)
	if other.MergeInfo.SelectionMergeBlock == merge {
		other.MergeInfo.SelectionMergeBlock = dup
	}
	if other.MergeInfo.MergeBlock == merge {
		other.MergeInfo.MergeBlock = dup
	}
	return true
}
