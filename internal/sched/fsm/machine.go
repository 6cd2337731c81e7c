package fsm

// Context is the machine's mutable working memory. Values must stay
// JSON-representable so a machine can round-trip through the persistent blob.
type Context map[string]any

// Event is delivered to the current state's transition table. Data carries
// event-scoped parameters for transition actions; it is not persisted.
type Event struct {
	Type string
	Data map[string]any
}

// Action mutates the context while a transition fires. Actions run in
// declaration order and must be deterministic functions of (ctx, ev).
type Action func(ctx Context, ev Event)

type Transition struct {
	Target  string
	Actions []Action
}

// State maps event types to transitions. Events with no entry are ignored.
type State struct {
	Name string
	On   map[string]Transition
}

// Table is the immutable definition a machine runs against. Tables are built
// once at startup and shared by every machine of the same role.
type Table struct {
	Name    string
	Initial string
	States  map[string]*State
}

// AddState registers a state, creating the map lazily so table literals stay
// short.
func (t *Table) AddState(s *State) *Table {
	if t.States == nil {
		t.States = map[string]*State{}
	}
	t.States[s.Name] = s
	return t
}

// Has reports whether name is a declared state.
func (t *Table) Has(name string) bool {
	_, ok := t.States[name]
	return ok
}

// Machine is one running instance: a current state name plus context, bound
// to a shared Table.
type Machine struct {
	table   *Table
	current string
	ctx     Context
}

// New builds a machine in the table's initial state with an empty context.
func New(table *Table) *Machine {
	return &Machine{table: table, current: table.Initial, ctx: Context{}}
}

// NewAt builds a machine at an explicit state and context. The caller is
// responsible for state being declared in the table (Restore enforces this).
func NewAt(table *Table, state string, ctx Context) *Machine {
	if ctx == nil {
		ctx = Context{}
	}
	return &Machine{table: table, current: state, ctx: ctx}
}

func (m *Machine) State() string { return m.current }

func (m *Machine) Context() Context { return m.ctx }

func (m *Machine) Table() *Table { return m.table }

// Send delivers one event. Unhandled events are a no-op: role behaviors
// overlap and most states only care about a few event types. On a handled
// event the transition's actions run in order against the context, then the
// machine moves to the target state.
func (m *Machine) Send(ev Event) bool {
	st := m.table.States[m.current]
	if st == nil {
		return false
	}
	tr, ok := st.On[ev.Type]
	if !ok {
		return false
	}
	for _, act := range tr.Actions {
		act(m.ctx, ev)
	}
	m.current = tr.Target
	return true
}
