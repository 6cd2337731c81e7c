package core

import (
	"log"

	"hivetick.ai/internal/sched/task"
	"hivetick.ai/internal/sched/tuning"
)

// Scheduler is the per-tick entry point. One synchronous pass, fixed order:
// registry -> assignment -> agent stepping -> governed housekeeping. It holds
// no state of its own between ticks; everything that survives lives in the
// blob the host passes in.
type Scheduler struct {
	tun         tuning.Tuning
	logger      *log.Logger
	registry    *Registry
	assigner    *Assigner
	executor    *Executor
	housekeeper *Housekeeper
}

func NewScheduler(t tuning.Tuning, logger *log.Logger) *Scheduler {
	return &Scheduler{
		tun:         t,
		logger:      logger,
		registry:    NewRegistry(t, logger),
		assigner:    NewAssigner(t),
		executor:    NewExecutor(t, logger),
		housekeeper: NewHousekeeper(t, logger),
	}
}

// Executor exposes role registration for hosts with custom behaviors.
func (s *Scheduler) Executor() *Executor { return s.executor }

// TickResult is the digest of one invocation, for logs and observers.
type TickResult struct {
	Tick    uint64   `json:"tick"`
	Actions []Action `json:"actions"`
	Ledger  Ledger   `json:"ledger"`
	JobsRun []string `json:"jobs_run,omitempty"`

	TasksPending  int `json:"tasks_pending"`
	TasksAssigned int `json:"tasks_assigned"`
	TasksOpen     int `json:"tasks_open"`
	AgentRecords  int `json:"agent_records"`
}

// RunTick executes one full invocation against the snapshot and blob and
// returns the emitted actions. The blob is mutated in place and handed back
// to the host's store afterwards; the snapshot is never written.
func (s *Scheduler) RunTick(snap *Snapshot, blob *Blob) TickResult {
	blob.EnsureDefaults()
	gov := NewGovernor(snap.Meter, s.tun)

	// Mandatory work, never budget-gated. Record reconciliation runs before
	// assignment so agents observed for the first time this tick already have
	// a record and are assignable; Step reconciles again, which is idempotent.
	s.registry.Generate(snap, blob)
	s.executor.Reconcile(snap, blob)
	s.assigner.Assign(snap, blob)
	actions := s.executor.Step(snap, blob)

	// Optional work, checked per unit.
	jobs := s.housekeeper.Run(snap, blob, gov)

	ledger := gov.Ledger()
	blob.Profile = append(blob.Profile, ProfileSample{Tick: snap.Tick, Used: ledger.Used})

	res := TickResult{
		Tick:    snap.Tick,
		Actions: actions,
		Ledger:  ledger,
		JobsRun: jobs,
	}
	for _, t := range blob.Tasks {
		switch t.Status {
		case task.StatusPending:
			res.TasksPending++
		case task.StatusAssigned, task.StatusInProgress:
			res.TasksAssigned++
		}
		if !t.Status.Terminal() {
			res.TasksOpen++
		}
	}
	res.AgentRecords = len(blob.Agents)
	return res
}
