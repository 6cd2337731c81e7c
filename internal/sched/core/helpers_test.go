package core

import (
	"hivetick.ai/internal/sched/task"
	"hivetick.ai/internal/sched/tuning"
)

// fakeMeter is a settable meter for tests. used can be bumped mid-tick to
// model work consuming budget.
type fakeMeter struct {
	used    float64
	limit   float64
	reserve float64
}

func (m *fakeMeter) Used() float64    { return m.used }
func (m *fakeMeter) Limit() float64   { return m.limit }
func (m *fakeMeter) Reserve() float64 { return m.reserve }

func richMeter() *fakeMeter {
	return &fakeMeter{used: 1, limit: 20, reserve: 9000}
}

func testSnapshot(tick uint64) *Snapshot {
	return &Snapshot{
		Tick:   tick,
		Health: HealthNormal,
		Meter:  richMeter(),
		Structures: []Structure{
			{ID: "spawn-1", Kind: "SPAWN", Pos: task.Pos{X: 25, Y: 25, Region: "W0N0"}, Hits: 100, HitsMax: 100, Home: true},
		},
	}
}

func addAgent(s *Snapshot, id string, role Role, pos task.Pos) {
	s.Agents = append(s.Agents, AgentView{
		ID: id, Role: role, Pos: pos, HomeRegion: "W0N0", CapacityMax: 50,
	})
}

func addDeposit(s *Snapshot, id string, pos task.Pos, amount int) {
	s.Deposits = append(s.Deposits, Deposit{ID: id, Pos: pos, Amount: amount})
}

func newBlob() *Blob {
	b := &Blob{}
	b.EnsureDefaults()
	return b
}

func testTuning() tuning.Tuning {
	return tuning.Default()
}
