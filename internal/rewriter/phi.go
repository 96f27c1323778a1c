package rewriter

import (
	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// undefValue is the placeholder incoming value inserted when no existing
// definition can be proven to reach a newly-introduced predecessor edge.
// Minted as a cfgir.SyntheticValue rather than reaching into hostir —
// irtranslate is the only package allowed to import both cfgir and
// hostir (irtranslate/translate.go's package doc).
const undefValue = cfgir.SyntheticValue("undef")

// PhiWarning records a MalformedPhi recovery (spec.md §7): an undef was
// inserted because no definition could be proven to reach the new edge.
type PhiWarning struct {
	Node string
	Phi  string
	Pred string
}

// RepairPhis brings every phi on every node back in line with I5: for
// each predecessor newly introduced by edge rewriting that a phi doesn't
// yet have an incoming entry for, either propagate the dominating
// definition's value (phi_frontier_makes_forward_progress, spec.md §4.6)
// or insert undef and record a warning. Stale incoming entries whose
// predecessor no longer exists are dropped.
func RepairPhis(pool *cfgir.Pool, an *analysis.Analyses) []PhiWarning {
	var warnings []PhiWarning
	pool.ForEach(func(n *cfgir.Node) bool {
		want := cfgir.EffectivePreds(n)
		wantSet := make(map[*cfgir.Node]bool, len(want))
		for _, p := range want {
			wantSet[p] = true
		}
		for _, ph := range n.Phis {
			// Drop incoming entries for predecessors that no longer apply.
			kept := ph.Incoming[:0]
			for _, in := range ph.Incoming {
				if wantSet[in.Pred] {
					kept = append(kept, in)
				}
			}
			ph.Incoming = kept

			for _, p := range want {
				if _, ok := ph.IncomingFor(p); ok {
					continue
				}
				val, ok := forwardProgressValue(an, ph, p)
				if !ok {
					val = undefValue
					warnings = append(warnings, PhiWarning{Node: n.Name, Phi: ph.Target.ValueName(), Pred: p.Name})
				}
				ph.Incoming = append(ph.Incoming, cfgir.PhiIncoming{Pred: p, Value: val})
			}
		}
		return true
	})
	return warnings
}

// forwardProgressValue implements phi_frontier_makes_forward_progress: walk
// p's dominator chain looking for a block the phi already has a (possibly
// stale-but-still-valid) incoming entry for. If one dominates p, that
// definition provably reaches the new edge and its value is propagated.
// Failing that, traverse the post-dominance frontier outward from each
// existing definition (spec.md §4.6): if the frontier closure reaches p,
// the definition's value still makes forward progress to the new edge;
// otherwise it cannot be proven to reach p and undef is required.
func forwardProgressValue(an *analysis.Analyses, ph *cfgir.Phi, p *cfgir.Node) (cfgir.Value, bool) {
	for cur := p; cur != nil; {
		for _, in := range ph.Incoming {
			if in.Pred == cur {
				return in.Value, true
			}
		}
		if cur.IDom == nil || cur.IDom == cur {
			break
		}
		cur = cur.IDom
	}
	for _, in := range ph.Incoming {
		if in.Pred.Dominates(p) || reachesViaPostDominanceFrontier(an, in.Pred, p) {
			return in.Value, true
		}
	}
	return nil, false
}

// reachesViaPostDominanceFrontier reports whether target is reachable from
// def by repeatedly stepping through the post-dominance frontier relation:
// def's own frontier, then the frontier of each node reached, and so on.
func reachesViaPostDominanceFrontier(an *analysis.Analyses, def, target *cfgir.Node) bool {
	visited := map[*cfgir.Node]bool{def: true}
	queue := []*cfgir.Node{def}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range an.PostDominanceFrontier(cur) {
			if f == target {
				return true
			}
			if !visited[f] {
				visited[f] = true
				queue = append(queue, f)
			}
		}
	}
	return false
}
