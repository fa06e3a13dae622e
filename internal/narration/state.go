package narration

// State is the scheduler's lifecycle state.
type State int

const (
	// StateIdle is the state before the first Start.
	StateIdle State = iota
	// StateLoading covers the settle delay before units are dispatched.
	StateLoading
	// StatePlaying means units have been dispatched and are completing.
	StatePlaying
	// StateStopped is terminal for a session. Start begins a new one.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Busy reports whether a session is loading or playing.
func (s State) Busy() bool {
	return s == StateLoading || s == StatePlaying
}

// machine tracks the current state and rejects transitions not in its
// table. Stop is allowed from every state, Start from every state.
type machine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
}

func newMachine() *machine {
	return &machine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:    {StateLoading, StateStopped},
			StateLoading: {StateLoading, StatePlaying, StateStopped},
			StatePlaying: {StateLoading, StateStopped},
			StateStopped: {StateLoading, StateStopped},
		},
		onEnter: make(map[State]func()),
	}
}

// transition moves to the given state if the table allows it.
func (m *machine) transition(to State) bool {
	valid := false
	for _, s := range m.transitions[m.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	m.current = to
	if fn, ok := m.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

func (m *machine) state() State {
	return m.current
}

func (m *machine) enter(s State, fn func()) {
	m.onEnter[s] = fn
}
