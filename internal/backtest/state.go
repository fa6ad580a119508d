package backtest

import "fmt"

// State is a phase of one backtest run
type State int

const (
	StateIdle State = iota
	StateRebalancing
	StateHolding
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRebalancing:
		return "rebalancing"
	case StateHolding:
		return "holding"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// legal transitions; Rebalancing → Finished only on interruption
var transitions = map[State][]State{
	StateIdle:        {StateRebalancing},
	StateRebalancing: {StateHolding, StateFinished},
	StateHolding:     {StateRebalancing, StateFinished},
}

// machine enforces the run lifecycle
type machine struct {
	state State
}

func (m *machine) transition(to State) error {
	for _, next := range transitions[m.state] {
		if next == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal backtest transition %s -> %s", m.state, to)
}
