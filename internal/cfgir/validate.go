package cfgir

import "fmt"

// Validate checks invariants I1, I2, I3 and I5 from spec.md §3 against the
// current shape of pool, with entry as the function's entry block; I4 is
// not checked. It returns
// every violation found rather than stopping at the first one, since the
// test suite's property checks (spec.md §8) want the complete picture.
func Validate(pool *Pool, entry *Node) []error {
	var errs []error

	// I1: preds/succs consistency.
	pool.ForEach(func(n *Node) bool {
		for _, s := range n.Succs {
			if !containsNode(s.Preds, n) {
				errs = append(errs, fmt.Errorf("I1: %s -> %s in succs but %s missing from preds", n.Name, s.Name, n.Name))
			}
		}
		for _, p := range n.Preds {
			if !containsNode(p.Succs, n) {
				errs = append(errs, fmt.Errorf("I1: %s <- %s in preds but %s missing from succs", n.Name, p.Name, n.Name))
			}
		}
		return true
	})

	// I2: every reachable node except entry has >=1 predecessor.
	reachable := reachableFrom(entry)
	for n := range reachable {
		if n != entry && len(n.Preds) == 0 {
			errs = append(errs, fmt.Errorf("I2: reachable node %s has no predecessors", n.Name))
		}
	}

	// I3: Loop-annotated nodes have merge+continue, or are the designated
	// synthesized-merge case (merge block may itself be synthetic but must
	// be set).
	pool.ForEach(func(n *Node) bool {
		if n.Merge == MergeLoop {
			if n.MergeInfo.MergeBlock == nil || n.MergeInfo.ContinueBlock == nil {
				errs = append(errs, fmt.Errorf("I3: loop header %s missing merge/continue block", n.Name))
			}
		}
		return true
	})

	// I5: phi domain equals preds (modulo PhiOverride substitution).
	pool.ForEach(func(n *Node) bool {
		for _, ph := range n.Phis {
			want := EffectivePreds(n)
			if len(ph.Incoming) != len(want) {
				errs = append(errs, fmt.Errorf("I5: phi on %s has %d incoming, want %d (preds)", n.Name, len(ph.Incoming), len(want)))
				continue
			}
			for _, p := range want {
				if _, ok := ph.IncomingFor(p); !ok {
					errs = append(errs, fmt.Errorf("I5: phi on %s missing incoming for pred %s", n.Name, p.Name))
				}
			}
		}
		return true
	})

	return errs
}

func containsNode(list []*Node, n *Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

func reachableFrom(entry *Node) map[*Node]bool {
	seen := map[*Node]bool{entry: true}
	stack := []*Node{entry}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}
