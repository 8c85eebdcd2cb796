package gate

import "fmt"

// State is the step a gate session is in.
type State int

const (
	StateIdle State = iota
	StateScanningQR
	StateTokenPending
	StateAwaitingFace
	StateFacePending
	StateGranted
	StateDenied
	StateErrored
	StateCancelled
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateScanningQR:   "scanning_qr",
	StateTokenPending: "token_pending",
	StateAwaitingFace: "awaiting_face",
	StateFacePending:  "face_pending",
	StateGranted:      "granted",
	StateDenied:       "denied",
	StateErrored:      "errored",
	StateCancelled:    "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	switch s {
	case StateGranted, StateDenied, StateErrored, StateCancelled:
		return true
	}
	return false
}

// InFlight reports whether an asynchronous step is running in s.
func (s State) InFlight() bool {
	switch s {
	case StateScanningQR, StateTokenPending, StateFacePending:
		return true
	}
	return false
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown gate state %q", text)
}
