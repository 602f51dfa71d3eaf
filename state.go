package chartz

// State represents the current state of a Source.
type State int32

const (
	// StateDisabled indicates the Source has no endpoint. It never fetches.
	StateDisabled State = iota

	// StateIdle indicates the Source is configured but has not fetched yet.
	StateIdle

	// StateLoading indicates a fetch is in flight.
	StateLoading

	// StateHealthy indicates the last completed fetch succeeded.
	StateHealthy

	// StateDegraded indicates the last completed fetch failed. The previous
	// value remains available.
	StateDegraded

	// StateEmpty indicates fetching failed and no value has ever been obtained.
	StateEmpty
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
