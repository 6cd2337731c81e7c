package core

import (
	"log"
	"sort"

	"hivetick.ai/internal/sched/fsm"
	"hivetick.ai/internal/sched/task"
	"hivetick.ai/internal/sched/tuning"
)

// Executor runs each agent's one-step transition: restore machine from the
// record, derive one domain event, send it, serialize back, emit one action.
// It owns agent records and the InProgress/Complete task transitions.
type Executor struct {
	roles    map[Role]*RoleDef
	fallback *RoleDef
	tun      tuning.Tuning
	logger   *log.Logger
}

func NewExecutor(t tuning.Tuning, logger *log.Logger) *Executor {
	return &Executor{
		roles:    defaultRoles(),
		fallback: &RoleDef{Table: defaultTable(), Decide: decideDefault},
		tun:      t,
		logger:   logger,
	}
}

// RegisterRole installs or replaces a role's behavior, for hosts layering
// their own strategies on the generic machine.
func (e *Executor) RegisterRole(r Role, def *RoleDef) {
	e.roles[r] = def
}

// Reconcile syncs agent records with the snapshot: newly observed agents get
// a record, and unobserved agents whose housing set is gone lose theirs
// immediately, no grace period (the snapshot is the authority on who still
// exists). The scheduler runs this before assignment so an agent observed for
// the first time is assignable in that same tick.
func (e *Executor) Reconcile(snap *Snapshot, blob *Blob) {
	for _, id := range blob.sortedAgentIDs() {
		rec := blob.Agents[id]
		if _, seen := snap.agentByID(id); seen {
			continue
		}
		if !snap.homeIntact(rec.HomeRegion) {
			if t := blob.Tasks[rec.AssignedTaskID]; t != nil && t.Assignee == id {
				// The next generation pass rediscovers the source and opens
				// a fresh pending task under the same identity.
				t.Assignee = ""
				t.Status = task.StatusAbandoned
				t.UpdatedAtTick = snap.Tick
			}
			delete(blob.Agents, id)
			if e.logger != nil {
				e.logger.Printf("agent %s: housing set lost, record dropped", id)
			}
		}
	}

	for _, view := range snap.Agents {
		rec := blob.Agents[view.ID]
		if rec == nil {
			rec = &AgentRecord{ID: view.ID, Role: view.Role, HomeRegion: view.HomeRegion}
			blob.Agents[view.ID] = rec
		}
		rec.Role = view.Role
		rec.LastSeenTick = snap.Tick
	}
}

// Step processes every observed agent in id order and returns one action per
// agent. Faults (unknown state, unknown role) degrade that one agent; the
// rest of the population still runs.
func (e *Executor) Step(snap *Snapshot, blob *Blob) []Action {
	e.Reconcile(snap, blob)

	actions := make([]Action, 0, len(snap.Agents))
	for _, view := range sortedViews(snap.Agents) {
		rec := blob.Agents[view.ID]

		def := e.roles[rec.Role]
		if def == nil {
			if e.logger != nil {
				e.logger.Printf("agent %s: no state table for role %q, using default", view.ID, rec.Role)
			}
			def = e.fallback
		}

		m, fellBack := fsm.Restore(rec.Machine, def.Table)
		if fellBack && e.logger != nil {
			e.logger.Printf("agent %s: unknown persisted state %q, reset to %q", view.ID, rec.Machine.State, def.Table.Initial)
		}

		dc := e.decisionContext(snap, blob, rec, view, m.State())
		ev := def.Decide(dc)
		if ev.Type != "" {
			m.Send(ev)
			e.applyTaskEffect(blob, rec, ev.Type, snap.Tick)
		}
		rec.Machine = fsm.Serialize(m)

		actions = append(actions, e.actionFor(blob, rec, view, m.State(), snap.Tick))
	}
	return actions
}

func (e *Executor) decisionContext(snap *Snapshot, blob *Blob, rec *AgentRecord, view AgentView, state string) DecisionContext {
	dc := DecisionContext{
		Tick:          snap.Tick,
		State:         state,
		Agent:         view,
		AtHome:        view.Pos.Region == rec.HomeRegion,
		CapacityFull:  view.CapacityMax > 0 && view.CapacityUsed >= view.CapacityMax,
		CapacityEmpty: view.CapacityUsed <= 0,
		Hazard:        view.Hazard,
	}
	t := blob.Tasks[rec.AssignedTaskID]
	if t == nil || t.Status.Terminal() || t.Assignee != view.ID {
		// Stale pointer; the registry already retired the task.
		rec.AssignedTaskID = ""
		return dc
	}
	dc.HasTask = true
	dc.TaskID = t.ID
	dc.AtTarget = blob.RouteCost(view.Pos, t.Pos, snap.Tick) <= 1
	_, dc.TaskDone = snap.sourceState(t.Kind, t.SourceID)
	return dc
}

// applyTaskEffect mirrors a machine transition onto the task record. The
// machine stays generic; task lifecycle knowledge lives here.
func (e *Executor) applyTaskEffect(blob *Blob, rec *AgentRecord, evType string, now uint64) {
	t := blob.Tasks[rec.AssignedTaskID]
	switch evType {
	case evArrived:
		if t != nil {
			t.Status = task.StatusInProgress
			t.UpdatedAtTick = now
		}
	case evTaskCompleted:
		if t != nil {
			t.Status = task.StatusComplete
			t.Assignee = ""
			t.UpdatedAtTick = now
		}
		rec.AssignedTaskID = ""
		rec.TargetRegion = ""
	case evTaskLost, evHazard, evCapacityFull:
		if t != nil && !t.Status.Terminal() {
			// Hand interrupted work back to the pool.
			t.Status = task.StatusPending
			t.Assignee = ""
			t.UpdatedAtTick = now
		}
		rec.AssignedTaskID = ""
		rec.TargetRegion = ""
	}
}

func (e *Executor) actionFor(blob *Blob, rec *AgentRecord, view AgentView, state string, now uint64) Action {
	t := blob.Tasks[rec.AssignedTaskID]
	switch state {
	case stateTraveling, stateAssigned:
		if t != nil {
			if blob.RouteCost(view.Pos, t.Pos, now) <= 1 {
				return Action{AgentID: view.ID, Type: ActionPerform, TargetID: t.SourceID, Pos: &t.Pos}
			}
			pos := t.Pos
			return Action{AgentID: view.ID, Type: ActionMoveToward, TargetID: t.SourceID, Pos: &pos}
		}
	case stateWorking:
		if t != nil {
			return Action{AgentID: view.ID, Type: ActionPerform, TargetID: t.SourceID, Pos: &t.Pos}
		}
	case stateReturning:
		pos := regionCenter(rec.HomeRegion)
		return Action{AgentID: view.ID, Type: ActionMoveToward, Pos: &pos}
	}
	return Action{AgentID: view.ID, Type: ActionIdle}
}

// regionCenter is the rally point for agents heading home (regions are
// 50x50).
func regionCenter(region string) task.Pos {
	return task.Pos{X: 25, Y: 25, Region: region}
}

func sortedViews(in []AgentView) []AgentView {
	out := make([]AgentView, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
