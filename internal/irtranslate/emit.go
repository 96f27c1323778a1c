package irtranslate

import (
	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/hostir"
)

// Emit rebuilds a hostir.Function from the stabilized pool (spec.md §4.7
// "Emit"). Every node's terminator is re-derived from its current
// cfgir.Terminator, which may have changed type or targets across passes.
// Merge/continue annotations are carried as dedicated BasicBlock fields
// rather than injected marker instructions at the terminator and target
// head — a structurally equivalent, more idiomatic Go rendition of the same
// information that a JSON-consuming caller can read without a second
// instruction-stream pass. Phi incoming predecessors are read directly off
// each Phi's Incoming list, which the rewriter's RepairPhis (C6) keeps in
// sync with EffectivePreds — phi_override already resolved — across every
// pass, so Emit needs no separate override indirection.
func Emit(pool *cfgir.Pool, entry *cfgir.Node) *hostir.Function {
	fn := &hostir.Function{Entry: entry.Name}
	pool.ForEach(func(n *cfgir.Node) bool {
		b := hostir.BasicBlock{Name: n.Name}
		for _, op := range n.Ops {
			if inst, ok := op.(hostir.Instruction); ok {
				b.Ops = append(b.Ops, inst)
			}
		}
		for _, ph := range n.Phis {
			pr := hostir.PhiRecord{Target: toValue(ph.Target)}
			for _, in := range ph.Incoming {
				pr.Incoming = append(pr.Incoming, hostir.PhiIncoming{Pred: in.Pred.Name, Value: toValue(in.Value)})
			}
			b.Phis = append(b.Phis, pr)
		}
		b.Terminator = exportTerminator(n.Terminator)

		switch n.Merge {
		case cfgir.MergeSelection:
			if n.MergeInfo.SelectionMergeBlock != nil {
				b.SelectionMerge = n.MergeInfo.SelectionMergeBlock.Name
			}
		case cfgir.MergeLoop:
			if n.MergeInfo.MergeBlock != nil {
				b.LoopMerge = n.MergeInfo.MergeBlock.Name
			}
			if n.MergeInfo.ContinueBlock != nil {
				b.LoopContinue = n.MergeInfo.ContinueBlock.Name
			}
		}

		fn.Blocks = append(fn.Blocks, b)
		return true
	})
	return fn
}

func toValue(v cfgir.Value) hostir.Value {
	if v == nil {
		return hostir.Value{}
	}
	if hv, ok := v.(hostir.Value); ok {
		return hv
	}
	return hostir.Value{Name: v.ValueName()}
}

func exportTerminator(t cfgir.Terminator) hostir.Terminator {
	switch v := t.(type) {
	case cfgir.Branch:
		return hostir.Terminator{Kind: hostir.TermBranch, Target: v.Target.Name}
	case cfgir.Condition:
		return hostir.Terminator{Kind: hostir.TermCondition, Cond: toValue(v.Cond), True: v.True.Name, False: v.False.Name}
	case cfgir.Switch:
		cases := make([]hostir.SwitchArm, 0, len(v.Cases))
		for _, c := range v.Cases {
			arm := hostir.SwitchArm{Target: c.Target.Name, IsDefault: c.IsDefault}
			if !c.IsDefault {
				arm.Value = toValue(c.Value)
			}
			cases = append(cases, arm)
		}
		return hostir.Terminator{Kind: hostir.TermSwitch, Selector: toValue(v.Selector), Cases: cases}
	case cfgir.Return:
		term := hostir.Terminator{Kind: hostir.TermReturn}
		if v.Value != nil {
			val := toValue(v.Value)
			term.Value = &val
		}
		return term
	case cfgir.Kill:
		return hostir.Terminator{Kind: hostir.TermKill}
	default: // cfgir.Unreachable and any unrecognized terminator alike
		return hostir.Terminator{Kind: hostir.TermUnreachable}
	}
}
