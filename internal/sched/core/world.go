package core

import "hivetick.ai/internal/sched/task"

// Health is the externally computed recovery signal. The scheduler only
// reacts to it (tier floors in assignment); it never computes it.
type Health string

const (
	HealthNormal    Health = "NORMAL"
	HealthDegraded  Health = "DEGRADED"
	HealthCritical  Health = "CRITICAL"
	HealthEmergency Health = "EMERGENCY"
)

// Meter exposes the host's compute accounting. Governed work re-reads it
// immediately before running; a value sampled at tick start is already stale.
type Meter interface {
	Used() float64
	Limit() float64
	Reserve() float64
}

// AgentView is one observable agent. Persistent identity and in-progress
// state live in the blob's AgentRecord, never here.
type AgentView struct {
	ID           string
	Role         Role
	Pos          task.Pos
	HomeRegion   string
	CapacityUsed int
	CapacityMax  int
	Hazard       bool
}

// Structure is an observable built object. A structure can source several
// task kinds at once (repair and delivery are independent identities).
type Structure struct {
	ID          string
	Kind        string
	Pos         task.Pos
	Hits        int
	HitsMax     int
	Demand      int // undelivered resource units wanted
	NeedsUpkeep bool
	Home        bool // part of the colony's housing set
}

// Deposit is a harvestable resource-bearing object.
type Deposit struct {
	ID     string
	Pos    task.Pos
	Amount int
}

// Site is an unfinished construction work site.
type Site struct {
	ID       string
	Pos      task.Pos
	Progress int
	Total    int
}

// Snapshot is the read-only, tick-scoped world view handed in by the host.
// The scheduler never mutates it and never retains it past the tick.
type Snapshot struct {
	Tick   uint64
	Health Health
	Meter  Meter

	Agents     []AgentView
	Structures []Structure
	Deposits   []Deposit
	Sites      []Site
}

// source is one task-generating world object for a specific kind. done means
// the underlying work is already satisfied.
type source struct {
	kind task.Kind
	id   string
	pos  task.Pos
	done bool
}

// sources enumerates every (kind, object) candidate in a fixed category
// order. Identity is (kind, id); the same object may appear under several
// kinds.
func (s *Snapshot) sources() []source {
	out := make([]source, 0, len(s.Structures)*2+len(s.Deposits)+len(s.Sites))
	for _, st := range s.Structures {
		if st.HitsMax > 0 && st.Hits < st.HitsMax {
			out = append(out, source{kind: task.KindRepair, id: st.ID, pos: st.Pos})
		}
		if st.Demand > 0 {
			out = append(out, source{kind: task.KindDeliver, id: st.ID, pos: st.Pos})
		}
		if st.NeedsUpkeep {
			out = append(out, source{kind: task.KindUpkeep, id: st.ID, pos: st.Pos})
		}
	}
	for _, d := range s.Deposits {
		if d.Amount > 0 {
			out = append(out, source{kind: task.KindHarvest, id: d.ID, pos: d.Pos})
		}
	}
	for _, si := range s.Sites {
		if si.Progress < si.Total {
			out = append(out, source{kind: task.KindBuild, id: si.ID, pos: si.Pos})
		}
	}
	return out
}

// sourceState reports whether the source object behind (kind, id) is still
// present, and whether its work is done. Used by the registry to retire open
// tasks and by the executor to detect completion.
func (s *Snapshot) sourceState(kind task.Kind, id string) (present, done bool) {
	switch kind {
	case task.KindRepair:
		for _, st := range s.Structures {
			if st.ID == id {
				return true, st.HitsMax > 0 && st.Hits >= st.HitsMax
			}
		}
	case task.KindDeliver:
		for _, st := range s.Structures {
			if st.ID == id {
				return true, st.Demand <= 0
			}
		}
	case task.KindUpkeep:
		for _, st := range s.Structures {
			if st.ID == id {
				return true, !st.NeedsUpkeep
			}
		}
	case task.KindHarvest:
		for _, d := range s.Deposits {
			if d.ID == id {
				return true, d.Amount <= 0
			}
		}
	case task.KindBuild:
		for _, si := range s.Sites {
			if si.ID == id {
				return true, si.Progress >= si.Total
			}
		}
	}
	return false, false
}

// homeIntact reports whether any housing structure remains in region.
// Losing the housing set is the terminal-loss condition for agent records
// homed there.
func (s *Snapshot) homeIntact(region string) bool {
	if region == "" {
		return true
	}
	for _, st := range s.Structures {
		if st.Home && st.Pos.Region == region {
			return true
		}
	}
	return false
}

func (s *Snapshot) agentByID(id string) (AgentView, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentView{}, false
}
