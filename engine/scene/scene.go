package scene

// State is the replicated world transition state
type State int

const (
	// StateNone means no transition ever ran or the last one was aborted
	StateNone State = iota
	// StateTransitioning means a transition was requested but not accepted yet
	StateTransitioning
	// StateLoading means the world load is in flight
	StateLoading
	// StateLoaded means every connected peer confirmed the load
	StateLoaded
	// StateUnloading is reserved for full-world unloads. Additive unloads
	// never touch the replicated state, so nothing assigns it yet.
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateTransitioning:
		return "Transitioning"
	case StateLoading:
		return "Loading"
	case StateLoaded:
		return "Loaded"
	case StateUnloading:
		return "Unloading"
	}
	return "InvalidState"
}

// LoadMode selects between a full transition and an additive load
type LoadMode int

const (
	// ModeSingle replaces the current world; participates in the ready barrier
	ModeSingle LoadMode = iota
	// ModeAdditive loads on top of the current world; no barrier
	ModeAdditive
)

// Loader is the world loading collaborator. Load and Unload return an error
// when the request is rejected (unknown world, already loading); actual
// completion is reported asynchronously through Coordinator.NotifyReady or
// AdditiveLoaded/AdditiveUnloaded.
type Loader interface {
	Load(name string, mode LoadMode) error
	Unload(name string) error
}

// NopLoader accepts every request and loads nothing, for sessions without a
// world layer
type NopLoader struct{}

// Load implements Loader
func (NopLoader) Load(name string, mode LoadMode) error { return nil }

// Unload implements Loader
func (NopLoader) Unload(name string) error { return nil }
