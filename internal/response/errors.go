package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountExists      ErrCode = "ACCOUNT_EXISTS"
	ErrAccountNotFound    ErrCode = "ACCOUNT_NOT_FOUND"
	ErrIncorrectPassword  ErrCode = "INCORRECT_PASSWORD"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrPermissionDenied      ErrCode = "PERMISSION_DENIED"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrAdminAccessOnly       ErrCode = "ADMIN_ACCESS_ONLY"
	ErrNavigationBlocked     ErrCode = "NAVIGATION_BLOCKED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam gate ─────────────────────────────────────────────────────
	ErrLockdownRequired      ErrCode = "LOCKDOWN_BROWSER_REQUIRED"
	ErrEntryGateRequired     ErrCode = "ENTRY_GATE_REQUIRED"
	ErrIncorrectGatePassword ErrCode = "INCORRECT_GATE_PASSWORD"
	ErrIncorrectQuitPassword ErrCode = "INCORRECT_QUIT_PASSWORD"

	// ─── Game & rounds ─────────────────────────────────────────────────
	ErrGameNotStarted    ErrCode = "GAME_NOT_STARTED"
	ErrInvalidRound      ErrCode = "INVALID_ROUND"
	ErrRoundLocked       ErrCode = "ROUND_LOCKED"
	ErrNoActiveAttempt   ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptState      ErrCode = "ATTEMPT_STATE_CONFLICT"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidSlot       ErrCode = "INVALID_QUESTION_SLOT"
	ErrInvalidQuestion   ErrCode = "INVALID_QUESTION"
	ErrUnsupportedAction ErrCode = "UNSUPPORTED_FOR_ROUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrAccountExists:
		return "Account already exists."
	case ErrAccountNotFound:
		return "No account found."
	case ErrIncorrectPassword:
		return "Incorrect password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrParticipantAccessOnly:
		return "This resource is restricted to participants."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrNavigationBlocked:
		return "This screen is not available right now."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam gate ─────────────────────────────────────────────────────
	case ErrLockdownRequired:
		return "This exam must be taken in the lockdown browser."
	case ErrEntryGateRequired:
		return "Enter the exam password to continue."
	case ErrIncorrectGatePassword:
		return "Incorrect entry password."
	case ErrIncorrectQuitPassword:
		return "Incorrect exit password."

	// ─── Game & rounds ─────────────────────────────────────────────────
	case ErrGameNotStarted:
		return "The game has not started yet."
	case ErrInvalidRound:
		return "Round must be between 1 and 3."
	case ErrRoundLocked:
		return "This round is still locked."
	case ErrNoActiveAttempt:
		return "No round is in progress."
	case ErrAttemptState:
		return "That action is not allowed at this point of the round."
	case ErrAlreadySubmitted:
		return "This round has already been submitted."
	case ErrInvalidSlot:
		return "Unknown round type or door."
	case ErrInvalidQuestion:
		return "One or more questions are invalid."
	case ErrUnsupportedAction:
		return "That action is not available in this round."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
