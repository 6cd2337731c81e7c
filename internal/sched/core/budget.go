package core

import "hivetick.ai/internal/sched/tuning"

// Ledger is the tick's compute accounting, recomputed on every read.
type Ledger struct {
	Limit   float64 `json:"limit"`
	Used    float64 `json:"used"`
	Reserve float64 `json:"reserve"`
}

// Governor gates optional work against the remaining compute allowance.
// Mandatory work (generation, assignment, agent stepping) never consults it;
// skipping that risks cascading task starvation, so only housekeeping is
// throttleable.
type Governor struct {
	meter        Meter
	safetyMargin float64
	reserveFloor float64

	// highest Used observed this tick; the ledger is monotone even if the
	// host's meter wobbles.
	usedHigh float64
}

func NewGovernor(meter Meter, t tuning.Tuning) *Governor {
	return &Governor{
		meter:        meter,
		safetyMargin: t.Budget.SafetyMargin,
		reserveFloor: t.Budget.ReserveFloor,
	}
}

// Ledger takes a fresh meter reading. Used is clamped non-decreasing within
// the tick.
func (g *Governor) Ledger() Ledger {
	l := Ledger{}
	if g.meter != nil {
		l = Ledger{Limit: g.meter.Limit(), Used: g.meter.Used(), Reserve: g.meter.Reserve()}
	}
	if l.Used < g.usedHigh {
		l.Used = g.usedHigh
	}
	g.usedHigh = l.Used
	return l
}

// AllowOptional re-checks the allowance immediately before a governed unit.
// Two gates: headroom this tick, and a reserve low-water mark that suppresses
// all optional work until the bank rebuilds. Each governed unit is atomic:
// either it runs to completion or it is deferred whole.
func (g *Governor) AllowOptional() bool {
	l := g.Ledger()
	if l.Limit-l.Used < g.safetyMargin {
		return false
	}
	if l.Reserve < g.reserveFloor {
		return false
	}
	return true
}
