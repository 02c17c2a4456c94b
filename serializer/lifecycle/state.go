package lifecycle

// State is where a file, as seen by its driver, is in its lifecycle.
type State uint8

const (
	// Unopened is the state of a freshly built serializer.
	Unopened State = iota
	// Opened follows a successful AfterCreate.
	Opened
	// Reopened follows a successful AfterReopen.
	Reopened
	// Writable follows the first Write.
	Writable
	// Closing is held while BeforeClose runs.
	Closing
	// Closed follows a successful BeforeClose. It is terminal.
	Closed
	// Failed follows any hook error. It is terminal.
	Failed
)

var stateNames = [...]string{
	Unopened: "unopened",
	Opened:   "opened",
	Reopened: "reopened",
	Writable: "writable",
	Closing:  "closing",
	Closed:   "closed",
	Failed:   "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no hook may be invoked from s.
func (s State) Terminal() bool {
	return s == Closed || s == Failed
}

// Hook names one of the serializer operations a driver can invoke.
type Hook uint8

const (
	HookAfterCreate Hook = iota
	HookAfterReopen
	HookWrite
	HookFlush
	HookBeforeClose
)

var hookNames = [...]string{
	HookAfterCreate: "AfterCreate",
	HookAfterReopen: "AfterReopen",
	HookWrite:       "Write",
	HookFlush:       "Flush",
	HookBeforeClose: "BeforeClose",
}

func (h Hook) String() string {
	if int(h) < len(hookNames) {
		return hookNames[h]
	}
	return "unknown"
}

// Hooks lists every hook, in declaration order.
var Hooks = []Hook{HookAfterCreate, HookAfterReopen, HookWrite, HookFlush, HookBeforeClose}

// States lists every state, in declaration order.
var States = []State{Unopened, Opened, Reopened, Writable, Closing, Closed, Failed}

// transitions is the legal transition table. A missing entry is an
// illegal call. BeforeClose maps to Closing; Closed is reached when it
// returns successfully.
var transitions = map[State]map[Hook]State{
	Unopened: {
		HookAfterCreate: Opened,
		HookAfterReopen: Reopened,
	},
	Opened: {
		HookWrite:       Writable,
		HookFlush:       Opened,
		HookBeforeClose: Closing,
	},
	Reopened: {
		HookWrite:       Writable,
		HookFlush:       Reopened,
		HookBeforeClose: Closing,
	},
	Writable: {
		HookWrite:       Writable,
		HookFlush:       Writable,
		HookBeforeClose: Closing,
	},
}

// Next returns the state reached by invoking h in state s, and whether
// that invocation is legal. Reopen capability is not part of the table;
// Session checks it separately.
func Next(s State, h Hook) (State, bool) {
	to, ok := transitions[s][h]
	return to, ok
}
