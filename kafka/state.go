package kafka

import "expectation-svc/middleware"

// State is the consumer lifecycle. It only moves forward:
// Disconnected, Connected, Consuming, Draining, Stopped.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateConsuming
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConsuming:
		return "consuming"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// advance moves to next unless that would go backwards. A rebalance calls
// Setup again, which must not resurrect a draining consumer.
func (r *Runner) advance(next State) {
	for {
		cur := r.state.Load()
		if cur >= int32(next) {
			return
		}
		if r.state.CompareAndSwap(cur, int32(next)) {
			middleware.SetConsumerState(int(next))
			return
		}
	}
}

func (r *Runner) State() State {
	return State(r.state.Load())
}
