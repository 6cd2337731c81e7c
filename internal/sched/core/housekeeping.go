package core

import (
	"log"
	"sort"

	"hivetick.ai/internal/sched/tuning"
)

const (
	jobPathCache    = "path_cache"
	jobStaleRecords = "stale_records"
	jobProfiling    = "profiling"
)

// rateGraceTicks shields freshly created cache entries from the use-rate
// criterion; one tick of history says nothing about steady reuse.
const rateGraceTicks = 50

// Housekeeper runs the amortized maintenance jobs: each on its own tick
// cadence, each capped in how many records it touches, and each gated by the
// governor immediately before it starts. A deferred job leaves no trace and
// simply retries on its next eligible tick.
type Housekeeper struct {
	tun    tuning.Tuning
	logger *log.Logger
}

func NewHousekeeper(t tuning.Tuning, logger *log.Logger) *Housekeeper {
	return &Housekeeper{tun: t, logger: logger}
}

// Run executes whichever jobs are due and affordable, returning the names of
// the ones that ran.
func (h *Housekeeper) Run(snap *Snapshot, blob *Blob, gov *Governor) []string {
	type job struct {
		name  string
		every int
		run   func(jr *JobRecord, now uint64) int
	}
	jobs := []job{
		{jobPathCache, h.tun.Cadence.PathCacheEveryTicks, func(jr *JobRecord, now uint64) int { return h.evictPaths(blob, jr, now) }},
		{jobStaleRecords, h.tun.Cadence.StaleRecordEveryTicks, func(jr *JobRecord, now uint64) int { return h.pruneAgents(snap, blob, jr, now) }},
		{jobProfiling, h.tun.Cadence.ProfilingEveryTicks, func(_ *JobRecord, now uint64) int { return h.trimProfile(blob, now) }},
	}

	var ran []string
	for _, j := range jobs {
		jr := blob.Jobs[j.name]
		if jr == nil {
			jr = &JobRecord{}
			blob.Jobs[j.name] = jr
		}
		if jr.Ran && snap.Tick-jr.LastRunTick < uint64(j.every) {
			continue
		}
		// The allowance check happens per job, right before it runs, never
		// from a reading taken at tick start.
		if !gov.AllowOptional() {
			continue
		}
		touched := j.run(jr, snap.Tick)
		jr.LastRunTick = snap.Tick
		jr.Ran = true
		ran = append(ran, j.name)
		if h.logger != nil && touched > 0 {
			h.logger.Printf("housekeeping %s: touched %d", j.name, touched)
		}
	}
	return ran
}

// evictPaths drops cache entries that are either idle past the age threshold
// or reused too rarely since creation, whichever triggers first. The dual
// criterion bounds one-off lookups without evicting steadily reused routes.
// The touch cap bounds entries examined, not just evicted; the cursor resumes
// the scan on the next run so entries deep in key order still age out.
func (h *Housekeeper) evictPaths(blob *Blob, jr *JobRecord, now uint64) int {
	keys := sortedKeys(blob.Paths)
	start := 0
	if jr.Cursor != "" {
		start = sort.SearchStrings(keys, jr.Cursor)
	}
	touched := 0
	i := start
	for ; i < len(keys) && i-start < h.tun.Cadence.MaxTouchedPerRun; i++ {
		e := blob.Paths[keys[i]]
		age := now - e.CreatedTick
		idle := now - e.LastUsedTick
		if idle > h.tun.Cache.PathMaxIdleTicks {
			delete(blob.Paths, keys[i])
			touched++
			continue
		}
		if age >= rateGraceTicks {
			rate := float64(e.Uses) / float64(age)
			if rate < h.tun.Cache.PathMinUseRate {
				delete(blob.Paths, keys[i])
				touched++
			}
		}
	}
	if i >= len(keys) {
		jr.Cursor = ""
	} else {
		jr.Cursor = keys[i]
	}
	return touched
}

// pruneAgents removes records for agents unseen past the grace period.
// (Terminal loss of the housing set is handled immediately by the executor.)
// Same capped-scan-with-cursor shape as evictPaths.
func (h *Housekeeper) pruneAgents(snap *Snapshot, blob *Blob, jr *JobRecord, now uint64) int {
	ids := blob.sortedAgentIDs()
	start := 0
	if jr.Cursor != "" {
		start = sort.SearchStrings(ids, jr.Cursor)
	}
	touched := 0
	i := start
	for ; i < len(ids) && i-start < h.tun.Cadence.MaxTouchedPerRun; i++ {
		rec := blob.Agents[ids[i]]
		if _, seen := snap.agentByID(ids[i]); seen {
			continue
		}
		if now-rec.LastSeenTick <= h.tun.Retain.AgentGraceTicks {
			continue
		}
		delete(blob.Agents, ids[i])
		touched++
		if h.logger != nil {
			h.logger.Printf("agent %s: unseen for %d ticks, record pruned", ids[i], now-rec.LastSeenTick)
		}
	}
	if i >= len(ids) {
		jr.Cursor = ""
	} else {
		jr.Cursor = ids[i]
	}
	return touched
}

// trimProfile enforces the profiling sample retention window. Samples are
// appended in tick order, so expiry only ever removes a prefix; the touch cap
// bounds how much of it goes per run.
func (h *Housekeeper) trimProfile(blob *Blob, now uint64) int {
	n := 0
	for n < len(blob.Profile) && n < h.tun.Cadence.MaxTouchedPerRun {
		if now-blob.Profile[n].Tick <= h.tun.Retain.ProfileSampleTicks {
			break
		}
		n++
	}
	blob.Profile = blob.Profile[n:]
	return n
}

func sortedKeys(m map[string]*PathEntry) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
