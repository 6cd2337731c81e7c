package core

import (
	"hivetick.ai/internal/sched/task"
	"hivetick.ai/internal/sched/tuning"
)

// Assigner pairs idle agents with pending tasks. Greedy by design: highest
// tier, then shortest route, then lowest task id. O(agents x pending) per
// tick is cheap enough to rerun from scratch every invocation, and the task
// set moves too fast for a globally optimal matching to stay optimal anyway.
type Assigner struct {
	tun tuning.Tuning
}

func NewAssigner(t tuning.Tuning) *Assigner {
	return &Assigner{tun: t}
}

// Assign walks agents in id order and claims the best pending task for each.
// An agent already holding a valid task is left alone; the registry has
// already released agents whose task died. The health signal raises a tier
// floor: under EMERGENCY only top-tier work is visible at all.
func (a *Assigner) Assign(snap *Snapshot, blob *Blob) {
	floor := a.tun.HealthTierFloor[string(snap.Health)]

	for _, agentID := range blob.sortedAgentIDs() {
		rec := blob.Agents[agentID]
		if rec.AssignedTaskID != "" {
			continue
		}
		view, ok := snap.agentByID(agentID)
		if !ok {
			continue
		}

		var best *task.Record
		bestDist := 0
		for _, tid := range blob.sortedTaskIDs() {
			t := blob.Tasks[tid]
			if t.Status != task.StatusPending {
				continue
			}
			if t.Priority < floor {
				continue
			}
			if !roleCanDo(rec.Role, t.Kind) {
				continue
			}
			d := blob.RouteCost(view.Pos, t.Pos, snap.Tick)
			if best == nil ||
				t.Priority > best.Priority ||
				(t.Priority == best.Priority && d < bestDist) {
				// Ids are scanned ascending, so on a full tie the earlier
				// task already won.
				best = t
				bestDist = d
			}
		}
		if best == nil {
			continue
		}

		best.Status = task.StatusAssigned
		best.Assignee = agentID
		best.UpdatedAtTick = snap.Tick
		rec.AssignedTaskID = best.ID
		rec.TargetRegion = best.Pos.Region
	}
}
