package loopengine

import (
	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/rewriter"
)

// RewriteTransposedLoops implements spec.md §4.4's transposed-loop rewrite.
// A transposed loop is one whose body contains more than one direct branch
// straight to the chosen merge: the structured form wants exactly one such
// edge, arriving through the construct's own ladder, so the merge keeps a
// single choke-point entry (I4). Rather than detecting the specific
// swapped-arm-order shape spec.md describes literally, once more than one
// such edge exists, every predecessor of merge that the header dominates
// (the first one included) is funnelled through one shared ladder
// (rewriter.CreateLadderBlock, C6) — the same primitive the selection
// engine uses for break ladders — which restores the same invariant with
// one mechanism instead of two, and keeps phi dominance intact since
// CreateLadderBlock's single tail is where a repaired phi would be
// materialized (spec.md §4.4(c)).
func RewriteTransposedLoops(pool *cfgir.Pool, nest *Nest) bool {
	dirty := false
	for _, l := range nest.Loops {
		if l.Infinite || l.Merge == nil {
			continue
		}
		direct := 0
		for n := range l.body {
			for _, s := range n.Succs {
				if s == l.Merge {
					direct++
				}
			}
		}
		if direct <= 1 {
			continue
		}
		rewriter.CreateLadderBlock(pool, l.Header, l.Merge, l.Header.Name+".ladder")
		l.State = LadderMaterialized
		dirty = true
	}
	return dirty
}
