package core

import (
	"fmt"
	"sort"

	"hivetick.ai/internal/sched/fsm"
	"hivetick.ai/internal/sched/task"
)

// Role is the closed set of behavior variants. Unknown roles degrade to a
// minimal default state table instead of failing the tick.
type Role string

const (
	RoleHarvester Role = "HARVESTER"
	RoleHauler    Role = "HAULER"
	RoleBuilder   Role = "BUILDER"
	RoleCustodian Role = "CUSTODIAN"
)

// kindsFor is the role-compatibility table consulted by assignment.
func kindsFor(r Role) []task.Kind {
	switch r {
	case RoleHarvester:
		return []task.Kind{task.KindHarvest}
	case RoleHauler:
		return []task.Kind{task.KindDeliver}
	case RoleBuilder:
		return []task.Kind{task.KindBuild, task.KindRepair}
	case RoleCustodian:
		return []task.Kind{task.KindUpkeep, task.KindRepair}
	}
	return nil
}

func roleCanDo(r Role, k task.Kind) bool {
	for _, c := range kindsFor(r) {
		if c == k {
			return true
		}
	}
	return false
}

// AgentRecord is the persisted per-agent state. Mutation belongs to the
// behavior executor; assignment only writes AssignedTaskID/TargetRegion.
type AgentRecord struct {
	ID             string       `json:"id"`
	Role           Role         `json:"role"`
	Machine        fsm.Snapshot `json:"machine"`
	AssignedTaskID string       `json:"assigned_task_id,omitempty"`
	HomeRegion     string       `json:"home_region,omitempty"`
	TargetRegion   string       `json:"target_region,omitempty"`
	LastSeenTick   uint64       `json:"last_seen_tick"`
}

// PathEntry is a memoized route cost. Evicted by housekeeping when idle too
// long or when its use rate since creation falls under the configured floor.
type PathEntry struct {
	Cost         int    `json:"cost"`
	CreatedTick  uint64 `json:"created_tick"`
	LastUsedTick uint64 `json:"last_used_tick"`
	Uses         uint64 `json:"uses"`
}

// ProfileSample is one tick's budget reading, kept for offline inspection
// and trimmed by the profiling retention job.
type ProfileSample struct {
	Tick uint64  `json:"tick"`
	Used float64 `json:"used"`
}

// JobRecord tracks per-job housekeeping cadence across ticks. Ran
// distinguishes a job that has never run from one whose last run was tick 0.
// Cursor is where a capped scan resumes on the job's next run.
type JobRecord struct {
	LastRunTick uint64 `json:"last_run_tick"`
	Ran         bool   `json:"ran,omitempty"`
	Cursor      string `json:"cursor,omitempty"`
}

// Blob is the persistent state surviving between ticks, owned sub-key by
// sub-key: tasks by the registry, agents by the executor, jobs/paths/profile
// by housekeeping. The host may reset or truncate it at any time, so every
// access goes through EnsureDefaults first.
type Blob struct {
	Tasks   map[string]*task.Record `json:"tasks,omitempty"`
	Agents  map[string]*AgentRecord `json:"agents,omitempty"`
	Jobs    map[string]*JobRecord   `json:"jobs,omitempty"`
	Paths   map[string]*PathEntry   `json:"paths,omitempty"`
	Profile []ProfileSample         `json:"profile,omitempty"`
}

// EnsureDefaults lazily creates every sub-structure. Cold or truncated blobs
// are normal operation, not an error.
func (b *Blob) EnsureDefaults() {
	if b.Tasks == nil {
		b.Tasks = map[string]*task.Record{}
	}
	if b.Agents == nil {
		b.Agents = map[string]*AgentRecord{}
	}
	if b.Jobs == nil {
		b.Jobs = map[string]*JobRecord{}
	}
	if b.Paths == nil {
		b.Paths = map[string]*PathEntry{}
	}
}

// sortedTaskIDs returns task ids in stable order. Map iteration order must
// never leak into scheduling decisions.
func (b *Blob) sortedTaskIDs() []string {
	ids := make([]string, 0, len(b.Tasks))
	for id := range b.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Blob) sortedAgentIDs() []string {
	ids := make([]string, 0, len(b.Agents))
	for id := range b.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RouteCost returns the memoized travel-cost heuristic between two points,
// recording the lookup for the eviction policy.
func (b *Blob) RouteCost(from, to task.Pos, now uint64) int {
	k := routeKey(from, to)
	if e := b.Paths[k]; e != nil {
		e.Uses++
		e.LastUsedTick = now
		return e.Cost
	}
	c := task.Dist(from, to)
	b.Paths[k] = &PathEntry{Cost: c, CreatedTick: now, LastUsedTick: now, Uses: 1}
	return c
}

func routeKey(from, to task.Pos) string {
	return fmt.Sprintf("%s:%d:%d>%s:%d:%d", from.Region, from.X, from.Y, to.Region, to.X, to.Y)
}
