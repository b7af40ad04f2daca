package constants

import "time"

// Session status constants
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

func (s SessionStatus) String() string {
	return string(s)
}

// StatusKind is the machine-readable tag on a status definition
type StatusKind string

const (
	StatusKindSetup      StatusKind = "setup"
	StatusKindProduction StatusKind = "production"
	StatusKindStoppage   StatusKind = "stoppage"
	StatusKindOther      StatusKind = "other"
)

// Reason codes written on status events by the server itself
const (
	ReasonAutoAbandoned = "auto_abandoned"
)

// IdleThreshold is how long a session may go without a heartbeat before reclamation closes it.
const IdleThreshold = 5 * time.Minute
