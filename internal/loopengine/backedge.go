package loopengine

import (
	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// RewriteMultipleBackEdges restores invariant P3 (no node has more than
// one back-edge predecessor, spec.md §8): for every header targeted by
// more than one back edge, synthesize a fresh continue node, retarget
// every back edge onto it, and give it a single branch back to the
// header. Returns true if any rewrite happened, meaning the caller must
// recompute Analyses before continuing the fixed-point driver loop
// (spec.md §2 step 1).
func RewriteMultipleBackEdges(pool *cfgir.Pool, an *analysis.Analyses) bool {
	backEdgesByHeader := map[*cfgir.Node][]*cfgir.Node{}
	pool.ForEach(func(n *cfgir.Node) bool {
		for _, s := range n.Succs {
			if an.IsBackEdge(n, s) {
				backEdgesByHeader[s] = append(backEdgesByHeader[s], n)
			}
		}
		return true
	})

	dirty := false
	for header, sources := range backEdgesByHeader {
		if len(sources) <= 1 {
			continue
		}
		cont := pool.CreateNode(header.Name+".fake_continue", true)
		cont.Terminator = cfgir.Branch{Target: header}

		// Collapse each header phi's per-source incoming entries into one
		// entry keyed by cont. When the sources disagree on the value, a
		// fresh phi on cont merges them first — header must not lose
		// information just because several latches now look like one.
		for _, ph := range header.Phis {
			var collected []cfgir.PhiIncoming
			for _, src := range sources {
				if in, ok := ph.IncomingFor(src); ok {
					collected = append(collected, in)
					ph.RemoveIncoming(src)
				}
			}
			if len(collected) == 0 {
				continue
			}
			merged := collected[0].Value
			if !allSameValue(collected) {
				contPhi := &cfgir.Phi{Target: cfgir.SyntheticValue(ph.Target.ValueName() + ".latch"), Incoming: collected}
				cont.Phis = append(cont.Phis, contPhi)
				merged = contPhi.Target
			}
			ph.Incoming = append(ph.Incoming, cfgir.PhiIncoming{Pred: cont, Value: merged})
		}

		for _, src := range sources {
			src.RetargetBranch(header, cont)
		}
		cont.AddBranch(header)
		dirty = true
	}
	return dirty
}

// allSameValue reports whether every incoming pair carries the same value
// name. Values are opaque to the structurizer, so name equality is the only
// comparison available — and the right one, since two host-IR values with
// the same name are the same SSA definition.
func allSameValue(in []cfgir.PhiIncoming) bool {
	for i := 1; i < len(in); i++ {
		if in[i].Value.ValueName() != in[0].Value.ValueName() {
			return false
		}
	}
	return true
}
