package core

import "hivetick.ai/internal/sched/fsm"

// Behavior state names shared by every role table.
const (
	stateIdle      = "idle"
	stateTraveling = "traveling"
	stateWorking   = "working"
	stateReturning = "returning"
	stateAssigned  = "assigned" // default fallback table only
)

// Domain events fed to the machines, derived once per agent per tick.
const (
	evAssigned      = "assigned"
	evArrived       = "arrived"
	evArrivedHome   = "arrived_home"
	evTaskCompleted = "task_completed"
	evTaskLost      = "task_lost"
	evCapacityFull  = "capacity_full"
	evCapacityEmpty = "capacity_empty"
	evHazard        = "hazard"
)

// RoleDef couples a role's state table with its decision strategy. The
// strategy is a pure function of the decision context so the behavior layer
// stays pluggable and the machine stays generic.
type RoleDef struct {
	Table  *fsm.Table
	Decide func(dc DecisionContext) fsm.Event
}

// DecisionContext is the per-agent view the strategy decides from.
type DecisionContext struct {
	Tick  uint64
	State string
	Agent AgentView

	HasTask  bool
	TaskID   string
	TaskDone bool
	AtTarget bool
	AtHome   bool

	CapacityFull  bool
	CapacityEmpty bool
	Hazard        bool
}

func rememberTask(ctx fsm.Context, ev fsm.Event) {
	if id, ok := ev.Data["task_id"].(string); ok {
		ctx["task_id"] = id
	}
	ctx["since_tick"] = ev.Data["tick"]
}

func forgetTask(ctx fsm.Context, ev fsm.Event) {
	delete(ctx, "task_id")
	delete(ctx, "since_tick")
}

// workerTable is the common idle/traveling/working/returning shape. Hazards
// interrupt travel and work; returning ends back at idle.
func workerTable(name string) *fsm.Table {
	t := &fsm.Table{Name: name, Initial: stateIdle}
	t.AddState(&fsm.State{Name: stateIdle, On: map[string]fsm.Transition{
		evAssigned: {Target: stateTraveling, Actions: []fsm.Action{rememberTask}},
	}})
	t.AddState(&fsm.State{Name: stateTraveling, On: map[string]fsm.Transition{
		evArrived:  {Target: stateWorking},
		evTaskLost: {Target: stateIdle, Actions: []fsm.Action{forgetTask}},
		evHazard:   {Target: stateReturning, Actions: []fsm.Action{forgetTask}},
	}})
	t.AddState(&fsm.State{Name: stateWorking, On: map[string]fsm.Transition{
		evTaskCompleted: {Target: stateIdle, Actions: []fsm.Action{forgetTask}},
		evTaskLost:      {Target: stateIdle, Actions: []fsm.Action{forgetTask}},
		evHazard:        {Target: stateReturning, Actions: []fsm.Action{forgetTask}},
	}})
	t.AddState(&fsm.State{Name: stateReturning, On: map[string]fsm.Transition{
		evArrivedHome: {Target: stateIdle},
	}})
	return t
}

// harvesterTable extends the worker shape with a carry cycle: full while
// working sends the agent home, empty at home frees it again.
func harvesterTable() *fsm.Table {
	t := workerTable("harvester")
	t.States[stateWorking].On[evCapacityFull] = fsm.Transition{
		Target: stateReturning, Actions: []fsm.Action{forgetTask},
	}
	t.States[stateReturning].On[evCapacityEmpty] = fsm.Transition{Target: stateIdle}
	return t
}

// defaultTable is the minimal fallback for roles with no registered table. A
// misconfigured agent idles between assignments instead of aborting the tick.
func defaultTable() *fsm.Table {
	t := &fsm.Table{Name: "default", Initial: stateIdle}
	t.AddState(&fsm.State{Name: stateIdle, On: map[string]fsm.Transition{
		evAssigned: {Target: stateAssigned, Actions: []fsm.Action{rememberTask}},
	}})
	t.AddState(&fsm.State{Name: stateAssigned, On: map[string]fsm.Transition{
		evTaskCompleted: {Target: stateIdle, Actions: []fsm.Action{forgetTask}},
		evTaskLost:      {Target: stateIdle, Actions: []fsm.Action{forgetTask}},
	}})
	return t
}

// decideWorker derives at most one event per tick from the context. The
// order of checks is the precedence: losing the task beats everything,
// hazards beat progress, then arrival/completion.
func decideWorker(dc DecisionContext) fsm.Event {
	// tick is stored as float64 so a context that has round-tripped through
	// JSON compares equal to one that never left memory.
	data := map[string]any{"task_id": dc.TaskID, "tick": float64(dc.Tick)}
	switch dc.State {
	case stateIdle:
		if dc.HasTask {
			return fsm.Event{Type: evAssigned, Data: data}
		}
	case stateTraveling:
		if !dc.HasTask {
			return fsm.Event{Type: evTaskLost, Data: data}
		}
		if dc.Hazard {
			return fsm.Event{Type: evHazard, Data: data}
		}
		if dc.AtTarget {
			return fsm.Event{Type: evArrived, Data: data}
		}
	case stateWorking:
		if !dc.HasTask {
			return fsm.Event{Type: evTaskLost, Data: data}
		}
		if dc.Hazard {
			return fsm.Event{Type: evHazard, Data: data}
		}
		if dc.CapacityFull {
			return fsm.Event{Type: evCapacityFull, Data: data}
		}
		if dc.TaskDone {
			return fsm.Event{Type: evTaskCompleted, Data: data}
		}
	case stateReturning:
		if dc.CapacityEmpty && dc.AtHome {
			return fsm.Event{Type: evCapacityEmpty, Data: data}
		}
		if dc.AtHome {
			return fsm.Event{Type: evArrivedHome, Data: data}
		}
	}
	return fsm.Event{}
}

func decideDefault(dc DecisionContext) fsm.Event {
	data := map[string]any{"task_id": dc.TaskID, "tick": float64(dc.Tick)}
	switch dc.State {
	case stateIdle:
		if dc.HasTask {
			return fsm.Event{Type: evAssigned, Data: data}
		}
	case stateAssigned:
		if !dc.HasTask {
			return fsm.Event{Type: evTaskLost, Data: data}
		}
		if dc.TaskDone {
			return fsm.Event{Type: evTaskCompleted, Data: data}
		}
	}
	return fsm.Event{}
}

// defaultRoles builds the closed role -> behavior table.
func defaultRoles() map[Role]*RoleDef {
	return map[Role]*RoleDef{
		RoleHarvester: {Table: harvesterTable(), Decide: decideWorker},
		RoleHauler:    {Table: workerTable("hauler"), Decide: decideWorker},
		RoleBuilder:   {Table: workerTable("builder"), Decide: decideWorker},
		RoleCustodian: {Table: workerTable("custodian"), Decide: decideWorker},
	}
}
