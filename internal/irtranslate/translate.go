// Package irtranslate is the IR Translator (C7): bidirectional mapping
// between hostir.Function and the structurizer's internal cfgir.Pool, plus
// the emission-time fixups of spec.md §4.7 (fake-selection wrapping, merge
// annotation injection). It is the only package that imports both cfgir and
// hostir, bridging them through cfgir's opaque Value/Instruction interfaces
// so neither of those two packages needs to know about the other.
package irtranslate

import (
	"github.com/pkg/errors"

	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/hostir"
)

// ErrUnsupportedTerminator is raised when a host terminator kind isn't one
// of the six spec.md §3 variants (fatal, no recovery — spec.md §7).
var ErrUnsupportedTerminator = errors.New("irtranslate: unsupported terminator")

// Import builds a fresh node pool from fn (spec.md §4.7 "Import"): one node
// per host basic block, terminators translated into the closed
// cfgir.Terminator sum type, phis resolved by keeping only the first
// occurrence of a duplicate incoming-block entry (the later duplicates are
// dropped, and Emit does not restore them) and dropping entries whose block
// is not a predecessor once all edges exist. If the function's
// entry block already has a predecessor (most commonly because it is a
// single-block infinite-loop function, scenario S4), a fresh zero-predecessor
// entry is inserted ahead of it so the back-edge into the real entry stays
// detectable and the host IR's "entry has no predecessors" convention holds.
func Import(fn *hostir.Function) (*cfgir.Pool, *cfgir.Node, error) {
	pool := cfgir.NewPool()
	nodes := make(map[string]*cfgir.Node, len(fn.Blocks))
	for _, b := range fn.Blocks {
		nodes[b.Name] = pool.CreateNode(b.Name, false)
	}
	entry, ok := nodes[fn.Entry]
	if !ok {
		return nil, nil, errors.Errorf("irtranslate: entry block %q not found among blocks", fn.Entry)
	}

	for _, b := range fn.Blocks {
		n := nodes[b.Name]
		for _, op := range b.Ops {
			n.Ops = append(n.Ops, op)
		}
		term, err := importTerminator(nodes, b.Name, b.Terminator)
		if err != nil {
			return nil, nil, err
		}
		n.Terminator = term
		for _, target := range cfgir.TerminatorTargets(term) {
			n.AddBranch(target)
		}
		importPhis(nodes, n, b.Phis)
	}

	for _, n := range pool.Nodes() {
		for _, ph := range n.Phis {
			kept := ph.Incoming[:0]
			for _, in := range ph.Incoming {
				for _, p := range n.Preds {
					if p == in.Pred {
						kept = append(kept, in)
						break
					}
				}
			}
			ph.Incoming = kept
		}
	}

	if len(entry.Preds) > 0 {
		entry = insertFakeEntry(pool, entry)
	}
	return pool, entry, nil
}

// insertFakeEntry gives entry a fresh zero-predecessor predecessor named
// per spec.md §6's "<origin>.new_entry.fake_continue" scheme — reusing the
// fake_continue suffix even though this block carries no loop annotation,
// since both are the same shape: a single-instruction unconditional
// passthrough synthesized to keep an invariant honest.
func insertFakeEntry(pool *cfgir.Pool, realEntry *cfgir.Node) *cfgir.Node {
	fake := pool.CreateNode(realEntry.Name+".new_entry.fake_continue", true)
	fake.Terminator = cfgir.Branch{Target: realEntry}
	fake.AddBranch(realEntry)
	return fake
}

// importPhis resolves duplicate incoming-block entries by keeping only the
// first occurrence, and silently drops incoming entries that name a block
// the function does not have. Entries whose block exists but is not among
// n's predecessors are dropped afterwards by Import, once every edge is in
// place.
func importPhis(nodes map[string]*cfgir.Node, n *cfgir.Node, phis []hostir.PhiRecord) {
	for _, pr := range phis {
		ph := &cfgir.Phi{Target: pr.Target}
		seen := map[string]bool{}
		for _, in := range pr.Incoming {
			if seen[in.Pred] {
				continue
			}
			seen[in.Pred] = true
			pred, ok := nodes[in.Pred]
			if !ok {
				continue
			}
			ph.Incoming = append(ph.Incoming, cfgir.PhiIncoming{Pred: pred, Value: in.Value})
		}
		n.Phis = append(n.Phis, ph)
	}
}

func importTerminator(nodes map[string]*cfgir.Node, blockName string, t hostir.Terminator) (cfgir.Terminator, error) {
	target := func(name string) (*cfgir.Node, error) {
		n, ok := nodes[name]
		if !ok {
			return nil, errors.Errorf("irtranslate: block %q: target %q not found", blockName, name)
		}
		return n, nil
	}

	switch t.Kind {
	case hostir.TermBranch:
		tgt, err := target(t.Target)
		if err != nil {
			return nil, err
		}
		return cfgir.Branch{Target: tgt}, nil
	case hostir.TermCondition:
		tt, err := target(t.True)
		if err != nil {
			return nil, err
		}
		ft, err := target(t.False)
		if err != nil {
			return nil, err
		}
		return cfgir.Condition{Cond: t.Cond, True: tt, False: ft}, nil
	case hostir.TermSwitch:
		cases := make([]cfgir.SwitchCase, 0, len(t.Cases))
		for _, c := range t.Cases {
			tgt, err := target(c.Target)
			if err != nil {
				return nil, err
			}
			var val cfgir.Value
			if !c.IsDefault {
				val = c.Value
			}
			cases = append(cases, cfgir.SwitchCase{Value: val, Target: tgt, IsDefault: c.IsDefault})
		}
		return cfgir.Switch{Selector: t.Selector, Cases: cases}, nil
	case hostir.TermReturn:
		var v cfgir.Value
		if t.Value != nil {
			v = *t.Value
		}
		return cfgir.Return{Value: v}, nil
	case hostir.TermUnreachable:
		return cfgir.Unreachable{}, nil
	case hostir.TermKill:
		return cfgir.Kill{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedTerminator, "block %q: kind %q", blockName, t.Kind)
	}
}

// WrapFakeSelections implements spec.md §4.7's "Fake selection": a loop
// header whose Condition branches to two targets that are neither its own
// merge nor its own continue can't carry a loop_merge annotation and a bare
// conditional at once, so the condition is hoisted into a new
// fake_selection successor. The header becomes an unconditional branch to
// it; fake_selection keeps the original condition and gets its own
// synthesized unreachable selection merge, restoring structuredness for the
// loop body's internal branch.
func WrapFakeSelections(pool *cfgir.Pool) bool {
	dirty := false
	for _, n := range pool.Nodes() {
		if n.Merge != cfgir.MergeLoop {
			continue
		}
		cond, ok := n.Terminator.(cfgir.Condition)
		if !ok {
			continue
		}
		mc := func(t *cfgir.Node) bool {
			return t == n.MergeInfo.MergeBlock || t == n.MergeInfo.ContinueBlock
		}
		if mc(cond.True) || mc(cond.False) {
			continue
		}

		fs := pool.CreateNode(n.Name+".fake_selection", true)
		n.SeverSucc(cond.True)
		n.SeverSucc(cond.False)
		n.Terminator = cfgir.Branch{Target: fs}
		n.AddBranch(fs)

		fs.Terminator = cond
		fs.AddBranch(cond.True)
		fs.AddBranch(cond.False)
		rekeyPhis(n, fs, cond.True, cond.False)

		unreachable := pool.CreateNode(n.Name+".fake_selection.unreachable", true)
		unreachable.Terminator = cfgir.Unreachable{}
		fs.Merge = cfgir.MergeSelection
		fs.MergeInfo.SelectionMergeBlock = unreachable
		dirty = true
	}
	return dirty
}

func rekeyPhis(from, to *cfgir.Node, targets ...*cfgir.Node) {
	for _, t := range targets {
		for _, ph := range t.Phis {
			if in, ok := ph.IncomingFor(from); ok {
				ph.RemoveIncoming(from)
				ph.Incoming = append(ph.Incoming, cfgir.PhiIncoming{Pred: to, Value: in.Value})
			}
		}
	}
}
