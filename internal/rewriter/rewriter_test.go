package rewriter

import (
	"testing"

	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

func TestCreateLadderBlockFunnelsDominatedPreds(t *testing.T) {
	pool := cfgir.NewPool()
	header := pool.CreateNode("header", false)
	a := pool.CreateNode("a", false)
	b := pool.CreateNode("b", false)
	outsider := pool.CreateNode("outsider", false)
	target := pool.CreateNode("target", false)

	header.Terminator = cfgir.Condition{True: a, False: b}
	header.AddBranch(a)
	header.AddBranch(b)
	a.Terminator = cfgir.Branch{Target: target}
	a.AddBranch(target)
	b.Terminator = cfgir.Branch{Target: target}
	b.AddBranch(target)
	outsider.Terminator = cfgir.Branch{Target: target}
	outsider.AddBranch(target)
	target.Terminator = cfgir.Return{}

	analysis.Compute(pool, header) // header dominates a and b but not outsider
	// header itself is the root of this sub-test's traversal, so seed
	// StrictlyDominates manually via IDom for a/b (outsider stays undominated).
	a.IDom = header
	b.IDom = header

	ladder := CreateLadderBlock(pool, header, target, "header.ladder")

	if len(target.Preds) != 2 {
		t.Fatalf("expected target to have exactly 2 preds (ladder, outsider), got %d", len(target.Preds))
	}
	foundLadder, foundOutsider := false, false
	for _, p := range target.Preds {
		if p == ladder {
			foundLadder = true
		}
		if p == outsider {
			foundOutsider = true
		}
	}
	if !foundLadder || !foundOutsider {
		t.Fatalf("expected target's preds to be {ladder, outsider}, got %v", target.Preds)
	}
	if len(ladder.Preds) != 2 {
		t.Fatalf("expected ladder to inherit a and b as preds, got %d", len(ladder.Preds))
	}
}

func TestMergeToSuccFoldsDegenerateNode(t *testing.T) {
	pool := cfgir.NewPool()
	p := pool.CreateNode("p", false)
	mid := pool.CreateNode("mid", true)
	s := pool.CreateNode("s", false)

	p.Terminator = cfgir.Branch{Target: mid}
	p.AddBranch(mid)
	mid.Terminator = cfgir.Branch{Target: s}
	mid.AddBranch(s)
	s.Terminator = cfgir.Return{}

	phi := &cfgir.Phi{Target: cfgir.SyntheticValue("v")}
	phi.Incoming = []cfgir.PhiIncoming{{Pred: mid, Value: cfgir.SyntheticValue("x")}}
	s.Phis = append(s.Phis, phi)

	if !MergeToSucc(pool, mid) {
		t.Fatalf("expected mid to qualify as a degenerate fold candidate")
	}
	if len(s.Preds) != 1 || s.Preds[0] != p {
		t.Fatalf("expected s's sole predecessor to become p, got %v", s.Preds)
	}
	if _, ok := phi.IncomingFor(p); !ok {
		t.Fatalf("expected phi incoming to be re-keyed from mid to p")
	}
	if pool.NodeByName("mid") != nil {
		t.Fatalf("expected mid to be removed from the pool")
	}
}

func TestEliminateDegenerateSkipsMergeTargets(t *testing.T) {
	pool := cfgir.NewPool()
	entry := pool.CreateNode("entry", false)
	mid := pool.CreateNode("mid", true)
	merge := pool.CreateNode("merge", false)

	entry.Terminator = cfgir.Branch{Target: mid}
	entry.AddBranch(mid)
	mid.Terminator = cfgir.Branch{Target: merge}
	mid.AddBranch(merge)
	merge.Terminator = cfgir.Return{}

	// entry claims mid as its own selection merge block: mid must survive.
	entry.Merge = cfgir.MergeSelection
	entry.MergeInfo.SelectionMergeBlock = mid

	dirty := EliminateDegenerate(pool, entry)
	if dirty {
		t.Fatalf("expected no fold: mid is referenced as a merge target")
	}
	if pool.NodeByName("mid") == nil {
		t.Fatalf("expected mid to survive since it is a live merge target")
	}
}

func TestDuplicateNodeSplitsSharedMerge(t *testing.T) {
	pool := cfgir.NewPool()
	a := pool.CreateNode("a", false)
	b := pool.CreateNode("b", false)
	shared := pool.CreateNode("shared", false)

	a.Terminator = cfgir.Branch{Target: shared}
	a.AddBranch(shared)
	b.Terminator = cfgir.Branch{Target: shared}
	b.AddBranch(shared)
	shared.Terminator = cfgir.Return{}

	phi := &cfgir.Phi{Target: cfgir.SyntheticValue("v")}
	phi.Incoming = []cfgir.PhiIncoming{
		{Pred: a, Value: cfgir.SyntheticValue("from_a")},
		{Pred: b, Value: cfgir.SyntheticValue("from_b")},
	}
	shared.Phis = append(shared.Phis, phi)

	if !CanDuplicatePhis(shared) {
		t.Fatalf("expected shared's phis to be safely cloneable")
	}

	clone := DuplicateNode(pool, shared, []*cfgir.Node{b})

	if len(shared.Preds) != 1 || shared.Preds[0] != a {
		t.Fatalf("expected shared to retain only a as predecessor, got %v", shared.Preds)
	}
	if len(clone.Preds) != 1 || clone.Preds[0] != b {
		t.Fatalf("expected clone to take b as its predecessor, got %v", clone.Preds)
	}
	if _, ok := phi.IncomingFor(b); ok {
		t.Fatalf("expected shared's phi to drop b's incoming entry")
	}
	if len(clone.Phis) != 1 {
		t.Fatalf("expected clone to carry its own copy of the phi")
	}
	if _, ok := clone.Phis[0].IncomingFor(b); !ok {
		t.Fatalf("expected clone's phi to retain b's incoming entry")
	}
}

func TestRepairPhisInsertsUndefWithoutForwardProgress(t *testing.T) {
	pool := cfgir.NewPool()
	entry := pool.CreateNode("entry", false)
	a := pool.CreateNode("a", false)
	b := pool.CreateNode("b", false)
	join := pool.CreateNode("join", false)

	entry.Terminator = cfgir.Condition{True: a, False: b}
	entry.AddBranch(a)
	entry.AddBranch(b)
	a.Terminator = cfgir.Branch{Target: join}
	a.AddBranch(join)
	b.Terminator = cfgir.Branch{Target: join}
	b.AddBranch(join)
	join.Terminator = cfgir.Return{}

	phi := &cfgir.Phi{Target: cfgir.SyntheticValue("v")}
	phi.Incoming = []cfgir.PhiIncoming{{Pred: a, Value: cfgir.SyntheticValue("from_a")}}
	join.Phis = append(join.Phis, phi)

	an := analysis.Compute(pool, entry)
	warnings := RepairPhis(pool, an)

	if len(warnings) != 1 {
		t.Fatalf("expected exactly one undef warning for join's missing b incoming, got %d", len(warnings))
	}
	in, ok := phi.IncomingFor(b)
	if !ok {
		t.Fatalf("expected an incoming entry for b after repair")
	}
	if in.Value.ValueName() != "undef" {
		t.Fatalf("expected undef value for b's incoming, got %v", in.Value)
	}
}
