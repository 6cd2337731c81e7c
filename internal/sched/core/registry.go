package core

import (
	"log"

	"hivetick.ai/internal/sched/task"
	"hivetick.ai/internal/sched/tuning"
)

// Registry discovers work from the snapshot and owns task status transitions
// for the generation pass (create, complete-from-world, abandon, purge).
type Registry struct {
	tun    tuning.Tuning
	logger *log.Logger
}

func NewRegistry(t tuning.Tuning, logger *log.Logger) *Registry {
	return &Registry{tun: t, logger: logger}
}

// Generate rebuilds the pending task set from the snapshot. Idempotent on an
// unchanged world: a second pass creates nothing and churns no assignment.
func (r *Registry) Generate(snap *Snapshot, blob *Blob) {
	srcs := snap.sources()

	// Open-task index by identity so rediscovery recognizes existing work.
	open := map[string]bool{}
	for id, t := range blob.Tasks {
		if !t.Status.Terminal() {
			open[id] = true
		}
	}

	for _, s := range srcs {
		id := task.ID(s.kind, s.id)
		if open[id] {
			continue
		}
		blob.Tasks[id] = &task.Record{
			ID:            id,
			Kind:          s.kind,
			SourceID:      s.id,
			Priority:      r.tun.TierFor(s.kind),
			Pos:           s.pos,
			Status:        task.StatusPending,
			CreatedAtTick: snap.Tick,
			UpdatedAtTick: snap.Tick,
		}
		open[id] = true
	}

	// Retire open tasks whose source vanished or finished, or whose assignee
	// disappeared. Stale references recover locally; nothing propagates.
	for _, id := range blob.sortedTaskIDs() {
		t := blob.Tasks[id]
		if t.Status.Terminal() {
			continue
		}
		present, done := snap.sourceState(t.Kind, t.SourceID)
		switch {
		case !present:
			r.retire(blob, t, task.StatusAbandoned, snap.Tick, "source gone")
		case done:
			r.retire(blob, t, task.StatusComplete, snap.Tick, "")
		case t.Assignee != "" && blob.Agents[t.Assignee] == nil:
			// The source is still there, so the next generation pass opens a
			// fresh pending task under the same identity.
			r.retire(blob, t, task.StatusAbandoned, snap.Tick, "assignee gone")
		}
	}

	// Purge terminal tasks past retention to bound blob growth.
	for _, id := range blob.sortedTaskIDs() {
		t := blob.Tasks[id]
		if !t.Status.Terminal() {
			continue
		}
		if snap.Tick-t.UpdatedAtTick > r.tun.Retain.AbandonedTaskTicks {
			delete(blob.Tasks, id)
		}
	}
}

// retire moves a task to a terminal status and releases its assignee.
func (r *Registry) retire(blob *Blob, t *task.Record, st task.Status, now uint64, reason string) {
	if t.Assignee != "" {
		if rec := blob.Agents[t.Assignee]; rec != nil && rec.AssignedTaskID == t.ID {
			rec.AssignedTaskID = ""
			rec.TargetRegion = ""
		}
		t.Assignee = ""
	}
	if st == task.StatusAbandoned && r.logger != nil {
		r.logger.Printf("task %s abandoned: %s", t.ID, reason)
	}
	t.Status = st
	t.UpdatedAtTick = now
}
