package main

import (
	"fmt"
	"math/rand"

	"hivetick.ai/internal/sched/core"
	"hivetick.ai/internal/sched/task"
)

// demoWorld is a tiny deterministic stand-in for the real host: it owns the
// observable state, applies the scheduler's action tokens naively, and
// re-snapshots every tick. World acquisition is outside the core, so the
// harness has to supply one.
type demoWorld struct {
	tick uint64
	rng  *rand.Rand

	agents     []core.AgentView
	structures []core.Structure
	deposits   []core.Deposit
	sites      []core.Site
}

func newDemoWorld(seed int64, startTick uint64) *demoWorld {
	rng := rand.New(rand.NewSource(seed))
	w := &demoWorld{tick: startTick, rng: rng}

	home := "W0N0"
	w.structures = []core.Structure{
		{ID: "spawn-1", Kind: "SPAWN", Pos: task.Pos{X: 25, Y: 25, Region: home}, Hits: 5000, HitsMax: 5000, Demand: 40, Home: true},
		{ID: "tower-1", Kind: "TOWER", Pos: task.Pos{X: 30, Y: 20, Region: home}, Hits: 2400, HitsMax: 3000},
		{ID: "road-1", Kind: "ROAD", Pos: task.Pos{X: 20, Y: 25, Region: home}, Hits: 900, HitsMax: 1000, NeedsUpkeep: true},
	}
	w.deposits = []core.Deposit{
		{ID: "dep-a", Pos: task.Pos{X: 10, Y: 40, Region: home}, Amount: 3000},
		{ID: "dep-b", Pos: task.Pos{X: 44, Y: 8, Region: home}, Amount: 3000},
		{ID: "dep-c", Pos: task.Pos{X: 12, Y: 12, Region: "W1N0"}, Amount: 1500},
	}
	w.sites = []core.Site{
		{ID: "site-ext1", Pos: task.Pos{X: 27, Y: 27, Region: home}, Progress: 0, Total: 300},
	}

	roles := []core.Role{
		core.RoleHarvester, core.RoleHarvester,
		core.RoleHauler, core.RoleBuilder, core.RoleCustodian,
	}
	for i, r := range roles {
		w.agents = append(w.agents, core.AgentView{
			ID:          fmt.Sprintf("agent-%02d", i+1),
			Role:        r,
			Pos:         task.Pos{X: 25 + i, Y: 26, Region: home},
			HomeRegion:  home,
			CapacityMax: 50,
		})
	}
	return w
}

func (w *demoWorld) snapshot(meter core.Meter, health core.Health) *core.Snapshot {
	return &core.Snapshot{
		Tick:       w.tick,
		Health:     health,
		Meter:      meter,
		Agents:     append([]core.AgentView(nil), w.agents...),
		Structures: append([]core.Structure(nil), w.structures...),
		Deposits:   append([]core.Deposit(nil), w.deposits...),
		Sites:      append([]core.Site(nil), w.sites...),
	}
}

// apply executes one action token per agent: a one-cell move, or one unit of
// work against the named target.
func (w *demoWorld) apply(actions []core.Action) {
	for _, act := range actions {
		i := w.agentIndex(act.AgentID)
		if i < 0 {
			continue
		}
		switch act.Type {
		case core.ActionMoveToward:
			if act.Pos != nil {
				w.moveToward(i, *act.Pos)
			}
		case core.ActionPerform:
			w.perform(i, act.TargetID)
		}
	}
}

func (w *demoWorld) moveToward(i int, to task.Pos) {
	a := &w.agents[i]
	if a.Pos.Region != to.Region {
		// Region hop, then walk within the region.
		a.Pos.Region = to.Region
		return
	}
	a.Pos.X += step(to.X - a.Pos.X)
	a.Pos.Y += step(to.Y - a.Pos.Y)
}

func (w *demoWorld) perform(i int, targetID string) {
	a := &w.agents[i]
	for j := range w.deposits {
		if w.deposits[j].ID == targetID && w.deposits[j].Amount > 0 && a.CapacityUsed < a.CapacityMax {
			w.deposits[j].Amount--
			a.CapacityUsed++
			return
		}
	}
	for j := range w.sites {
		if w.sites[j].ID == targetID && w.sites[j].Progress < w.sites[j].Total {
			w.sites[j].Progress++
			return
		}
	}
	for j := range w.structures {
		st := &w.structures[j]
		if st.ID != targetID {
			continue
		}
		switch {
		case st.Demand > 0 && a.CapacityUsed > 0:
			st.Demand--
			a.CapacityUsed--
		case st.NeedsUpkeep:
			st.NeedsUpkeep = false
		case st.Hits < st.HitsMax:
			st.Hits += 10
			if st.Hits > st.HitsMax {
				st.Hits = st.HitsMax
			}
		}
		return
	}
}

// advance runs the world's own slow dynamics: unloading at home, structure
// wear, deposit regrowth.
func (w *demoWorld) advance() {
	w.tick++
	for i := range w.agents {
		a := &w.agents[i]
		if a.Pos.Region == a.HomeRegion && a.CapacityUsed > 0 && near(a.Pos, task.Pos{X: 25, Y: 25, Region: a.HomeRegion}) {
			a.CapacityUsed -= min(2, a.CapacityUsed)
		}
	}
	if w.tick%200 == 0 {
		j := int(w.tick/200) % len(w.structures)
		w.structures[j].NeedsUpkeep = true
		if w.structures[j].Hits > 50 {
			w.structures[j].Hits -= 50
		}
	}
	if w.tick%100 == 0 {
		for i := range w.deposits {
			w.deposits[i].Amount += 5 + w.rng.Intn(10)
		}
	}
	if w.tick%150 == 0 {
		w.structures[0].Demand += 10
	}
}

func (w *demoWorld) agentIndex(id string) int {
	for i := range w.agents {
		if w.agents[i].ID == id {
			return i
		}
	}
	return -1
}

func step(d int) int {
	if d > 0 {
		return 1
	}
	if d < 0 {
		return -1
	}
	return 0
}

func near(a, b task.Pos) bool {
	return a.Region == b.Region && abs(a.X-b.X) <= 2 && abs(a.Y-b.Y) <= 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
