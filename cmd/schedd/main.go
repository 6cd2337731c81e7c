package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"hivetick.ai/internal/persistence/blobdb"
	persistlog "hivetick.ai/internal/persistence/log"
	"hivetick.ai/internal/sched/core"
	"hivetick.ai/internal/sched/tuning"
	"hivetick.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address for the observer stream")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		dbPath     = flag.String("db", "", "sqlite blob store path (default: <data>/sched.db)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in tuning)")
		schedID    = flag.String("id", "colony_1", "scheduler id (blob store key)")
		seed       = flag.Int64("seed", 1337, "demo world seed")
		ticks      = flag.Int("ticks", 0, "stop after N ticks (0 = run until signal)")
		tickMS     = flag.Int("tick_ms", 200, "tick period in milliseconds")
		limit      = flag.Float64("limit", 20, "per-tick compute limit in milliseconds")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[schedd] ", log.LstdFlags|log.Lmicroseconds)

	tun := tuning.Default()
	if *tuningPath != "" {
		t, err := tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tun = t
	}

	path := *dbPath
	if path == "" {
		path = *dataDir + "/sched.db"
	}
	store, err := blobdb.Open(path)
	if err != nil {
		logger.Fatalf("open blob store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	blob, startTick, err := store.LoadBlob(ctx, *schedID)
	if err != nil {
		logger.Fatalf("load blob: %v", err)
	}
	logger.Printf("blob %s loaded at tick %d", *schedID, startTick)

	sched := core.NewScheduler(tun, logger)
	obs := observer.NewServer(logger)
	tickLog := persistlog.NewTickLogger(*dataDir)
	defer tickLog.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", obs.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		if err := http.ListenAndServe(*addr, mux); err != nil {
			logger.Printf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	runID := uuid.NewString()
	world := newDemoWorld(*seed, startTick)
	bank := newBucket(*limit)
	logger.Printf("run %s starting at tick %d (limit %.1fms)", runID, startTick, *limit)

	period := time.Duration(*tickMS) * time.Millisecond
	for n := 0; *ticks == 0 || n < *ticks; n++ {
		tickStart := time.Now()

		meter := newWallMeter(*limit, bank.level)
		snap := world.snapshot(meter, bank.health())
		res := sched.RunTick(snap, blob)
		world.apply(res.Actions)
		world.advance()
		bank.settle(res.Ledger)

		if err := store.SaveBlob(ctx, *schedID, res.Tick, blob); err != nil {
			logger.Printf("save blob: %v", err)
		}
		if err := store.RecordTick(ctx, runID, res); err != nil {
			logger.Printf("record tick: %v", err)
		}
		if err := tickLog.WriteTick(res); err != nil {
			logger.Printf("tick log: %v", err)
		}
		obs.Publish(res)

		select {
		case <-sig:
			logger.Printf("signal received, stopping after tick %d", res.Tick)
			return
		case <-time.After(period - time.Since(tickStart)):
		}
	}
	logger.Printf("run %s finished", runID)
}

// wallMeter measures this tick's compute use in wall-clock milliseconds, the
// same unit as the limit.
type wallMeter struct {
	start   time.Time
	limit   float64
	reserve float64
}

func newWallMeter(limit, reserve float64) *wallMeter {
	return &wallMeter{start: time.Now(), limit: limit, reserve: reserve}
}

func (m *wallMeter) Used() float64    { return float64(time.Since(m.start).Microseconds()) / 1000.0 }
func (m *wallMeter) Limit() float64   { return m.limit }
func (m *wallMeter) Reserve() float64 { return m.reserve }

// bucket banks per-tick underuse as a reserve, capped like the source
// domain's credit bucket.
type bucket struct {
	level float64
	cap   float64
}

func newBucket(limit float64) *bucket {
	// Start half full so a fresh run is not immediately in emergency mode.
	return &bucket{level: limit * 250, cap: limit * 500}
}

func (b *bucket) settle(l core.Ledger) {
	b.level += l.Limit - l.Used
	if b.level < 0 {
		b.level = 0
	}
	if b.level > b.cap {
		b.level = b.cap
	}
}

func (b *bucket) health() core.Health {
	switch {
	case b.level < b.cap*0.01:
		return core.HealthEmergency
	case b.level < b.cap*0.05:
		return core.HealthCritical
	case b.level < b.cap*0.20:
		return core.HealthDegraded
	}
	return core.HealthNormal
}
