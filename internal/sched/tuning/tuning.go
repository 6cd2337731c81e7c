package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hivetick.ai/internal/sched/task"
)

type Tuning struct {
	// Priority precedence table: higher tier wins. Must stay total-ordered;
	// ties across kinds would make assignment order depend on map iteration.
	Priorities map[string]int `yaml:"priorities"`

	Budget  Budget  `yaml:"budget"`
	Cadence Cadence `yaml:"cadence"`
	Retain  Retain  `yaml:"retain"`
	Cache   Cache   `yaml:"cache"`

	// Minimum priority tier visible to assignment per health signal level.
	HealthTierFloor map[string]int `yaml:"health_tier_floor"`
}

type Budget struct {
	SafetyMargin float64 `yaml:"safety_margin"` // required headroom before optional work
	ReserveFloor float64 `yaml:"reserve_floor"` // below this, all optional work is suppressed
}

type Cadence struct {
	PathCacheEveryTicks   int `yaml:"path_cache_every_ticks"`
	StaleRecordEveryTicks int `yaml:"stale_record_every_ticks"`
	ProfilingEveryTicks   int `yaml:"profiling_every_ticks"`
	MaxTouchedPerRun      int `yaml:"max_touched_per_run"`
}

type Retain struct {
	AbandonedTaskTicks uint64 `yaml:"abandoned_task_ticks"` // purge Abandoned older than this
	AgentGraceTicks    uint64 `yaml:"agent_grace_ticks"`    // unseen agents survive this long
	ProfileSampleTicks uint64 `yaml:"profile_sample_ticks"` // profiling samples older are dropped
}

type Cache struct {
	PathMaxIdleTicks uint64  `yaml:"path_max_idle_ticks"` // evict entries unused this long
	PathMinUseRate   float64 `yaml:"path_min_use_rate"`   // uses per tick since creation
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

// Default returns the built-in tuning used when no file is supplied (tests,
// and hosts that never ship a configs dir).
func Default() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

// ApplyDefaults fills every zero field. The scheduler must come up sane from
// an empty yaml document.
func (t *Tuning) ApplyDefaults() {
	if len(t.Priorities) == 0 {
		t.Priorities = map[string]int{
			string(task.KindRepair):  40, // critical infrastructure
			string(task.KindDeliver): 30, // resource delivery
			string(task.KindHarvest): 30,
			string(task.KindBuild):   20, // construction
			string(task.KindUpkeep):  10, // maintenance
		}
	}
	if t.Budget.SafetyMargin == 0 {
		t.Budget.SafetyMargin = 2.0
	}
	if t.Budget.ReserveFloor == 0 {
		t.Budget.ReserveFloor = 1000
	}
	if t.Cadence.PathCacheEveryTicks == 0 {
		t.Cadence.PathCacheEveryTicks = 50
	}
	if t.Cadence.StaleRecordEveryTicks == 0 {
		t.Cadence.StaleRecordEveryTicks = 100
	}
	if t.Cadence.ProfilingEveryTicks == 0 {
		t.Cadence.ProfilingEveryTicks = 500
	}
	if t.Cadence.MaxTouchedPerRun == 0 {
		t.Cadence.MaxTouchedPerRun = 100
	}
	if t.Retain.AbandonedTaskTicks == 0 {
		t.Retain.AbandonedTaskTicks = 1500
	}
	if t.Retain.AgentGraceTicks == 0 {
		t.Retain.AgentGraceTicks = 600
	}
	if t.Retain.ProfileSampleTicks == 0 {
		t.Retain.ProfileSampleTicks = 3000
	}
	if t.Cache.PathMaxIdleTicks == 0 {
		t.Cache.PathMaxIdleTicks = 300
	}
	if t.Cache.PathMinUseRate == 0 {
		t.Cache.PathMinUseRate = 0.01
	}
	if len(t.HealthTierFloor) == 0 {
		t.HealthTierFloor = map[string]int{
			"NORMAL":    0,
			"DEGRADED":  20,
			"CRITICAL":  30,
			"EMERGENCY": 40,
		}
	}
}

// TierFor resolves a task kind through the precedence table. Unknown kinds
// land at tier 0 so they sort behind everything configured.
func (t Tuning) TierFor(k task.Kind) int {
	return t.Priorities[string(k)]
}
