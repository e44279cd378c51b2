// Package errors provides structured, code-tagged errors shared by services.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeConfigInvalidValue Code = "CONFIG_INVALID_VALUE"
	CodeConfigUnreadable   Code = "CONFIG_UNREADABLE"

	// Collaborator errors
	CodeCollaboratorFailed      Code = "COLLABORATOR_FAILED"
	CodeCollaboratorUnavailable Code = "COLLABORATOR_UNAVAILABLE"

	// Host presence errors
	CodePresenceGuardActive          Code = "PRESENCE_GUARD_ACTIVE"
	CodePresenceTransitionInProgress Code = "PRESENCE_TRANSITION_IN_PROGRESS"

	// Operator command errors
	CodeCommandUnknown       Code = "COMMAND_UNKNOWN"
	CodeCommandNotPrivileged Code = "COMMAND_NOT_PRIVILEGED"

	// Operator auth errors
	CodeOperatorTokenInvalid Code = "OPERATOR_TOKEN_INVALID"
	CodeOperatorTokenExpired Code = "OPERATOR_TOKEN_EXPIRED"
)

// Retryable reports whether an operation failing with this code may succeed
// on a later tick without operator action.
func (c Code) Retryable() bool {
	switch c {
	case CodeCollaboratorFailed, CodeCollaboratorUnavailable,
		CodePresenceGuardActive, CodePresenceTransitionInProgress:
		return true
	default:
		return false
	}
}
