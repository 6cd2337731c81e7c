package core

import (
	"testing"

	"hivetick.ai/internal/sched/task"
)

func TestScheduler_FullTickFromColdBlob(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addAgent(snap, "agent-02", RoleBuilder, task.Pos{X: 20, Y: 20, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 12, Y: 10, Region: "W0N0"}, 100)
	snap.Sites = append(snap.Sites, Site{ID: "site-1", Pos: task.Pos{X: 21, Y: 20, Region: "W0N0"}, Total: 10})

	// Deliberately nil sub-structures: a cold blob must lazy-initialize.
	blob := &Blob{}
	s := NewScheduler(testTuning(), nil)
	res := s.RunTick(snap, blob)

	if res.Tick != 1 {
		t.Fatalf("tick = %d", res.Tick)
	}
	if len(res.Actions) != 2 {
		t.Fatalf("actions = %d, want one per agent", len(res.Actions))
	}
	if blob.Agents["agent-01"].AssignedTaskID == "" || blob.Agents["agent-02"].AssignedTaskID == "" {
		t.Fatalf("agents not assigned: %+v", blob.Agents)
	}
	if len(blob.Profile) != 1 || blob.Profile[0].Tick != 1 {
		t.Fatalf("profile sample missing: %v", blob.Profile)
	}
	if res.TasksOpen == 0 || res.AgentRecords != 2 {
		t.Fatalf("digest wrong: %+v", res)
	}
}

func TestScheduler_BudgetSafetyAcrossTicks(t *testing.T) {
	meter := &fakeMeter{used: 1, limit: 20, reserve: 9000}
	snap := testSnapshot(100)
	snap.Meter = meter
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 12, Y: 10, Region: "W0N0"}, 100)

	blob := &Blob{}
	s := NewScheduler(testTuning(), nil)

	for tick := uint64(100); tick < 160; tick++ {
		snap.Tick = tick
		res := s.RunTick(snap, blob)
		if res.Ledger.Used > res.Ledger.Limit+res.Ledger.Reserve {
			t.Fatalf("tick %d: used %v exceeds limit+reserve", tick, res.Ledger.Used)
		}
	}
}

func TestScheduler_MandatoryWorkRunsWithoutBudget(t *testing.T) {
	snap := testSnapshot(1)
	snap.Meter = &fakeMeter{used: 19.9, limit: 20, reserve: 0} // nothing optional fits
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 12, Y: 10, Region: "W0N0"}, 100)

	blob := &Blob{}
	res := NewScheduler(testTuning(), nil).RunTick(snap, blob)

	if len(res.JobsRun) != 0 {
		t.Fatalf("optional work ran: %v", res.JobsRun)
	}
	if blob.Agents["agent-01"].AssignedTaskID == "" {
		t.Fatalf("mandatory assignment was gated by the governor")
	}
	if len(res.Actions) != 1 {
		t.Fatalf("mandatory stepping was gated by the governor")
	}
}

func TestScheduler_TwoInstancesSameDecisions(t *testing.T) {
	build := func() (*Scheduler, *Blob, *Snapshot) {
		snap := testSnapshot(1)
		addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
		addAgent(snap, "agent-02", RoleHauler, task.Pos{X: 25, Y: 24, Region: "W0N0"})
		addDeposit(snap, "dep-a", task.Pos{X: 12, Y: 10, Region: "W0N0"}, 100)
		snap.Structures[0].Demand = 40
		return NewScheduler(testTuning(), nil), &Blob{}, snap
	}

	s1, b1, snap1 := build()
	s2, b2, snap2 := build()
	for tick := uint64(1); tick < 20; tick++ {
		snap1.Tick, snap2.Tick = tick, tick
		r1 := s1.RunTick(snap1, b1)
		r2 := s2.RunTick(snap2, b2)
		if len(r1.Actions) != len(r2.Actions) {
			t.Fatalf("tick %d: action counts diverged", tick)
		}
		for i := range r1.Actions {
			if r1.Actions[i] != r2.Actions[i] {
				// Pos is a pointer; compare the pointed-to values.
				a, b := r1.Actions[i], r2.Actions[i]
				if a.AgentID != b.AgentID || a.Type != b.Type || a.TargetID != b.TargetID {
					t.Fatalf("tick %d action %d diverged: %+v vs %+v", tick, i, a, b)
				}
				if (a.Pos == nil) != (b.Pos == nil) || (a.Pos != nil && *a.Pos != *b.Pos) {
					t.Fatalf("tick %d action %d pos diverged", tick, i)
				}
			}
		}
	}
	for id, rec := range b1.Agents {
		if b2.Agents[id].Machine.State != rec.Machine.State {
			t.Fatalf("agent %s state diverged: %q vs %q", id, rec.Machine.State, b2.Agents[id].Machine.State)
		}
	}
}
