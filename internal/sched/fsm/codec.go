package fsm

// Snapshot is the persisted form of a machine: the current state name plus
// context. It lives inside the host's blob, so the host may hand back a
// zero-valued, truncated, or stale snapshot at any tick.
type Snapshot struct {
	State   string         `json:"state,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// Serialize captures the machine for the persistent blob. The context map is
// copied so later transitions cannot mutate an already-exported snapshot.
func Serialize(m *Machine) Snapshot {
	ctx := make(map[string]any, len(m.ctx))
	for k, v := range m.ctx {
		ctx[k] = v
	}
	if len(ctx) == 0 {
		ctx = nil
	}
	return Snapshot{State: m.current, Context: ctx}
}

// Restore rebuilds a machine from a snapshot against a table. A snapshot
// naming a state the table does not declare (or an empty snapshot) falls back
// to the initial state with an empty context: the blob can be reset or
// truncated by the host, so this is a recoverable condition, not an error.
// The second return reports whether the fallback was taken.
func Restore(snap Snapshot, table *Table) (*Machine, bool) {
	if snap.State == "" || !table.Has(snap.State) {
		return New(table), snap.State != ""
	}
	ctx := make(Context, len(snap.Context))
	for k, v := range snap.Context {
		ctx[k] = v
	}
	return NewAt(table, snap.State, ctx), false
}
