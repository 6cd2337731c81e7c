package core

import (
	"testing"

	"hivetick.ai/internal/sched/fsm"
	"hivetick.ai/internal/sched/task"
)

func runPasses(t *testing.T, snap *Snapshot, blob *Blob) []Action {
	t.Helper()
	e := NewExecutor(testTuning(), nil)
	NewRegistry(testTuning(), nil).Generate(snap, blob)
	e.Reconcile(snap, blob)
	NewAssigner(testTuning()).Assign(snap, blob)
	return e.Step(snap, blob)
}

func TestExecutor_CreatesRecordWithInitialState(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})

	blob := newBlob()
	NewExecutor(testTuning(), nil).Step(snap, blob)

	rec := blob.Agents["agent-01"]
	if rec == nil {
		t.Fatalf("no record created")
	}
	if rec.Machine.State != "idle" {
		t.Fatalf("state = %q, want role initial state", rec.Machine.State)
	}
	if rec.HomeRegion != "W0N0" || rec.LastSeenTick != 1 {
		t.Fatalf("record fields wrong: %+v", rec)
	}
}

func TestExecutor_ReconcileMakesNewAgentsAssignable(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 12, Y: 10, Region: "W0N0"}, 100)

	// An agent observed for the first time this tick must already have a
	// record when assignment runs, not one tick later.
	blob := newBlob()
	NewRegistry(testTuning(), nil).Generate(snap, blob)
	NewExecutor(testTuning(), nil).Reconcile(snap, blob)
	NewAssigner(testTuning()).Assign(snap, blob)

	rec := blob.Agents["agent-01"]
	if rec == nil {
		t.Fatalf("no record after reconcile")
	}
	if rec.AssignedTaskID == "" {
		t.Fatalf("first-tick agent invisible to assignment: %+v", rec)
	}
}

func TestExecutor_AssignedAgentTravelsThenWorks(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 20, Y: 10, Region: "W0N0"}, 100)

	blob := newBlob()
	NewExecutor(testTuning(), nil).Step(snap, blob) // record exists
	acts := runPasses(t, snap, blob)

	rec := blob.Agents["agent-01"]
	if rec.Machine.State != "traveling" {
		t.Fatalf("state = %q, want traveling", rec.Machine.State)
	}
	if len(acts) != 1 || acts[0].Type != ActionMoveToward || acts[0].TargetID != "dep-a" {
		t.Fatalf("action = %+v, want MOVE_TOWARD dep-a", acts)
	}

	// Next tick the agent stands at the deposit: arrival starts the work and
	// the task goes in-progress.
	next := testSnapshot(2)
	addAgent(next, "agent-01", RoleHarvester, task.Pos{X: 19, Y: 10, Region: "W0N0"})
	addDeposit(next, "dep-a", task.Pos{X: 20, Y: 10, Region: "W0N0"}, 100)
	acts = runPasses(t, next, blob)

	if rec.Machine.State != "working" {
		t.Fatalf("state = %q, want working", rec.Machine.State)
	}
	id := task.ID(task.KindHarvest, "dep-a")
	if blob.Tasks[id].Status != task.StatusInProgress {
		t.Fatalf("task status = %s, want IN_PROGRESS", blob.Tasks[id].Status)
	}
	if acts[0].Type != ActionPerform {
		t.Fatalf("action = %+v, want PERFORM", acts[0])
	}
}

func TestExecutor_CompletionFreesAgentAndTask(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleBuilder, task.Pos{X: 11, Y: 10, Region: "W0N0"})
	snap.Sites = append(snap.Sites, Site{ID: "site-1", Pos: task.Pos{X: 11, Y: 11, Region: "W0N0"}, Progress: 9, Total: 10})

	blob := newBlob()
	NewExecutor(testTuning(), nil).Step(snap, blob)
	runPasses(t, snap, blob) // assigned + arrived path starts

	// Work done: the site reached its total.
	next := testSnapshot(2)
	addAgent(next, "agent-01", RoleBuilder, task.Pos{X: 11, Y: 11, Region: "W0N0"})
	next.Sites = append(next.Sites, Site{ID: "site-1", Pos: task.Pos{X: 11, Y: 11, Region: "W0N0"}, Progress: 10, Total: 10})
	runPasses(t, next, blob)

	rec := blob.Agents["agent-01"]
	if rec.AssignedTaskID != "" {
		t.Fatalf("agent still holds task %q", rec.AssignedTaskID)
	}
	if rec.Machine.State != "idle" {
		t.Fatalf("state = %q, want idle", rec.Machine.State)
	}
}

func TestExecutor_UnknownRoleFallsBackToDefaultTable(t *testing.T) {
	snap := testSnapshot(1)
	snap.Agents = append(snap.Agents, AgentView{
		ID: "agent-odd", Role: Role("ALIEN"), Pos: task.Pos{X: 10, Y: 10, Region: "W0N0"},
		HomeRegion: "W0N0", CapacityMax: 50,
	})
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 12, Y: 10, Region: "W0N0"})

	blob := newBlob()
	acts := NewExecutor(testTuning(), nil).Step(snap, blob)

	// The misconfigured agent degrades; the rest of the population still ran.
	if len(acts) != 2 {
		t.Fatalf("actions = %d, want 2", len(acts))
	}
	if blob.Agents["agent-odd"].Machine.State != "idle" {
		t.Fatalf("fallback state = %q", blob.Agents["agent-odd"].Machine.State)
	}
}

func TestExecutor_UnknownPersistedStateResets(t *testing.T) {
	snap := testSnapshot(3)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})

	blob := newBlob()
	blob.Agents["agent-01"] = &AgentRecord{
		ID: "agent-01", Role: RoleHarvester, HomeRegion: "W0N0",
		Machine: fsm.Snapshot{State: "no-such-state"},
	}
	NewExecutor(testTuning(), nil).Step(snap, blob)

	if got := blob.Agents["agent-01"].Machine.State; got != "idle" {
		t.Fatalf("state = %q, want reset to initial", got)
	}
}

func TestExecutor_HousingLossDropsRecordImmediately(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})

	blob := newBlob()
	NewExecutor(testTuning(), nil).Step(snap, blob)
	if blob.Agents["agent-01"] == nil {
		t.Fatalf("record not created")
	}

	// Next tick the housing set is gone and the agent is no longer observed.
	next := &Snapshot{Tick: 2, Health: HealthNormal, Meter: richMeter()}
	NewExecutor(testTuning(), nil).Step(next, blob)
	if blob.Agents["agent-01"] != nil {
		t.Fatalf("record survived housing loss")
	}
}

func TestExecutor_HousingLossAbandonsHeldTask(t *testing.T) {
	snap := testSnapshot(1)
	addAgent(snap, "agent-01", RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	addDeposit(snap, "dep-a", task.Pos{X: 20, Y: 10, Region: "W0N0"}, 100)

	blob := newBlob()
	runPasses(t, snap, blob)

	id := task.ID(task.KindHarvest, "dep-a")
	if blob.Tasks[id].Assignee != "agent-01" {
		t.Fatalf("setup: task not held")
	}

	next := &Snapshot{Tick: 2, Health: HealthNormal, Meter: richMeter()}
	NewExecutor(testTuning(), nil).Step(next, blob)

	if blob.Tasks[id].Status != task.StatusAbandoned {
		t.Fatalf("status = %s, want ABANDONED", blob.Tasks[id].Status)
	}
	if blob.Tasks[id].Assignee != "" {
		t.Fatalf("assignee not released: %q", blob.Tasks[id].Assignee)
	}

	// The source is still out there: the next generation pass reopens the
	// work under the same identity.
	again := testSnapshot(3)
	addDeposit(again, "dep-a", task.Pos{X: 20, Y: 10, Region: "W0N0"}, 100)
	NewRegistry(testTuning(), nil).Generate(again, blob)
	if blob.Tasks[id].Status != task.StatusPending {
		t.Fatalf("work not reopened: %s", blob.Tasks[id].Status)
	}
}

func TestExecutor_OneActionPerAgentPerTick(t *testing.T) {
	snap := testSnapshot(1)
	for _, id := range []string{"agent-03", "agent-01", "agent-02"} {
		addAgent(snap, id, RoleHarvester, task.Pos{X: 10, Y: 10, Region: "W0N0"})
	}
	blob := newBlob()
	acts := NewExecutor(testTuning(), nil).Step(snap, blob)

	if len(acts) != 3 {
		t.Fatalf("actions = %d, want 3", len(acts))
	}
	// Deterministic id order regardless of snapshot order.
	want := []string{"agent-01", "agent-02", "agent-03"}
	for i, a := range acts {
		if a.AgentID != want[i] {
			t.Fatalf("action %d for %s, want %s", i, a.AgentID, want[i])
		}
	}
}
