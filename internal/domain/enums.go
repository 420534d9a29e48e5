// Package domain defines the core domain models for call control.
package domain

// SessionStatus represents the lifecycle state of a call session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Terminal reports whether no further transcript updates are accepted.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted
}

// DispatchCause classifies why an origination failed.
type DispatchCause string

const (
	DispatchCauseRejected    DispatchCause = "rejected"
	DispatchCauseTimeout     DispatchCause = "timeout"
	DispatchCauseUnreachable DispatchCause = "unreachable"
	DispatchCauseProtocol    DispatchCause = "protocol"
	// DispatchCauseCanceled means the caller went away before the engine
	// answered; the engine may still have acted on the command.
	DispatchCauseCanceled    DispatchCause = "canceled"
)

// StorageOp names the storage operation that failed.
type StorageOp string

const (
	StorageOpRead  StorageOp = "read"
	StorageOpWrite StorageOp = "write"
)
