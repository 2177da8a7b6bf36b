package sync

// State is the explicit synchronization state the UI layer observes to
// render sync affordances, and that gates re-entrant sync triggers.
type State int

const (
	// StateNotConfigured means credentials are missing or were disconnected.
	StateNotConfigured State = iota
	// StateInitializing means the provider libraries are being brought up.
	StateInitializing
	// StateReady means both libraries are up but no consent token is held.
	StateReady
	// StateAuthenticating means a consent decision is pending or required.
	StateAuthenticating
	// StateAuthenticated means a usable token is held and no fetch ran yet.
	StateAuthenticated
	// StateSyncing means a windowed fetch is in flight.
	StateSyncing
	// StateSynced means the last fetch completed and its events are visible.
	StateSynced
	// StateError means the last fetch failed with a classified error.
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotConfigured:
		return "not-configured"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
