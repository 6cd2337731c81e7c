package task

import "fmt"

type Kind string

const (
	KindRepair  Kind = "REPAIR"
	KindDeliver Kind = "DELIVER"
	KindHarvest Kind = "HARVEST"
	KindBuild   Kind = "BUILD"
	KindUpkeep  Kind = "UPKEEP"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusComplete   Status = "COMPLETE"
	StatusAbandoned  Status = "ABANDONED"
)

// Terminal reports whether a task in this status can never be worked again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusAbandoned
}

// Pos is duplicated here to avoid import cycles (task is used by core and by
// the world snapshot types).
type Pos struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Region string `json:"region"`
}

// Dist is the travel-cost heuristic used for assignment: Chebyshev distance
// within a region, plus a flat per-hop cost when regions differ. The real
// path cost belongs to the movement layer; this only has to rank candidates.
func Dist(a, b Pos) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	d := dx
	if dy > d {
		d = dy
	}
	if a.Region != b.Region {
		d += RegionHopCost
	}
	return d
}

// RegionHopCost approximates one region crossing in intra-region distance
// units (a region is 50x50).
const RegionHopCost = 50

// Record is the persisted form of one unit of work.
type Record struct {
	ID            string `json:"id"`
	Kind          Kind   `json:"kind"`
	SourceID      string `json:"source_id"`
	Priority      int    `json:"priority"`
	Pos           Pos    `json:"pos"`
	Status        Status `json:"status"`
	Assignee      string `json:"assignee,omitempty"`
	CreatedAtTick uint64 `json:"created_at_tick"`
	UpdatedAtTick uint64 `json:"updated_at_tick"`
}

// ID derives the stable task identity from kind and source object. Re-running
// discovery against an unchanged world must regenerate the same id.
func ID(kind Kind, sourceID string) string {
	return fmt.Sprintf("%s:%s", kind, sourceID)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
