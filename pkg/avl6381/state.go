package avl6381

// State is the demodulator session state
type State int

const (
	StateUninitialized State = iota
	StateIdentifying
	StateConfiguring
	// StateReady is configured for a profile with no channel acquired
	StateReady
	StateLocking
	StateLocked
	StateHalted
	StateFailed
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateIdentifying:   "identifying",
	StateConfiguring:   "configuring",
	StateReady:         "ready",
	StateLocking:       "locking",
	StateLocked:        "locked",
	StateHalted:        "halted",
	StateFailed:        "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "invalid"
}
