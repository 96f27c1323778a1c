package rewriter

import "github.com/a2flo/floor-llvm/internal/cfgir"

// InsertHelperPred inserts a single-instruction passthrough block between
// from and to, so that to gains a unique predecessor standing in for
// from. Used to unify multiple entry points into a merge block.
func InsertHelperPred(pool *cfgir.Pool, name string, from, to *cfgir.Node) *cfgir.Node {
	helper := pool.CreateNode(name, true)
	helper.Terminator = cfgir.Branch{Target: to}
	from.RetargetBranch(to, helper)
	helper.AddBranch(to)
	return helper
}

// CreateLadderBlock rewrites every branch from a node dominated by header
// (header included) that targets `target` so that it instead branches
// through a freshly created ladder block, which itself branches
// unconditionally to target. This is the ladder construction described in
// spec.md §4.5: it keeps header's header–merge relation well defined when
// multiple arms would otherwise converge on target directly, and is also
// how the loop engine funnels "break" edges toward an enclosing merge
// (spec.md §4.4 transposed-loop rewrite).
func CreateLadderBlock(pool *cfgir.Pool, header, target *cfgir.Node, name string) *cfgir.Node {
	var toRewire []*cfgir.Node
	for _, p := range target.Preds {
		if p != header && !header.StrictlyDominates(p) {
			continue
		}
		toRewire = append(toRewire, p)
	}

	// A single dominated predecessor needs no real ladder fan-in: it's
	// the same single-instruction passthrough InsertHelperPred builds.
	if len(toRewire) == 1 {
		return InsertHelperPred(pool, name, toRewire[0], target)
	}

	ladder := pool.CreateNode(name, true)
	ladder.Terminator = cfgir.Branch{Target: target}
	for _, p := range toRewire {
		p.RetargetBranch(target, ladder)
	}
	ladder.AddBranch(target)
	return ladder
}

// MergeToSucc folds a degenerate node n (one predecessor, one successor,
// no operations) into its successor: the predecessor branches directly to
// the successor, and any phi incoming keyed by n is re-keyed to the
// predecessor instead. Returns false if n isn't actually degenerate.
func MergeToSucc(pool *cfgir.Pool, n *cfgir.Node) bool {
	if len(n.Preds) != 1 || len(n.Succs) != 1 || len(n.Ops) != 0 || len(n.Phis) != 0 {
		return false
	}
	if _, ok := n.Terminator.(cfgir.Branch); !ok {
		return false
	}
	p := n.Preds[0]
	s := n.Succs[0]
	if p == n || s == n {
		return false
	}

	p.RetargetBranch(n, s)
	for _, ph := range s.Phis {
		if in, ok := ph.IncomingFor(n); ok {
			ph.RemoveIncoming(n)
			ph.Incoming = append(ph.Incoming, cfgir.PhiIncoming{Pred: p, Value: in.Value})
		}
	}
	n.SeverSucc(s)
	_ = pool.RemoveNode(n)
	return true
}
