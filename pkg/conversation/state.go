package conversation

import "fmt"

// State is the position of a conversation in the turn protocol.
//
// Every turn walks Idle → AwaitingUserInput → FilterCheck →
// (EmergencyShortCircuit | ProviderDispatch) → ReplyAppended → Idle.
// Ended is terminal and is only reached through Conversation.End.
type State int

const (
	StateIdle State = iota
	StateAwaitingUserInput
	StateFilterCheck
	StateEmergencyShortCircuit
	StateProviderDispatch
	StateReplyAppended
	StateEnded
)

var stateNames = map[State]string{
	StateIdle:                  "idle",
	StateAwaitingUserInput:     "awaiting-user-input",
	StateFilterCheck:           "filter-check",
	StateEmergencyShortCircuit: "emergency-short-circuit",
	StateProviderDispatch:      "provider-dispatch",
	StateReplyAppended:         "reply-appended",
	StateEnded:                 "ended",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateIdle:                  {StateAwaitingUserInput},
	StateAwaitingUserInput:     {StateFilterCheck},
	StateFilterCheck:           {StateEmergencyShortCircuit, StateProviderDispatch},
	StateEmergencyShortCircuit: {StateReplyAppended},
	StateProviderDispatch:      {StateReplyAppended},
	StateReplyAppended:         {StateIdle},
}

// CanTransition reports whether the turn protocol allows moving from s to next.
// Any non-terminal state may move to StateEnded.
func (s State) CanTransition(next State) bool {
	if s == StateEnded {
		return false
	}
	if next == StateEnded {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
