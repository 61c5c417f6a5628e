package game

import "errors"

// Code is a machine-readable error code sent to clients.
type Code string

const (
	CodeNotYourTurn          Code = "NOT_YOUR_TURN"
	CodeSessionNotActive     Code = "SESSION_NOT_ACTIVE"
	CodeSessionNotWaiting    Code = "SESSION_NOT_WAITING"
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeDuplicateDisplayName Code = "DUPLICATE_DISPLAY_NAME"
	CodeInvalidDisplayName   Code = "INVALID_DISPLAY_NAME"
	CodeSessionFull          Code = "SESSION_FULL"
	CodeInvalidWordInput     Code = "INVALID_WORD_INPUT"
	CodePowerUpNotHeld       Code = "POWER_UP_NOT_HELD"
	CodeInvalidPowerUp       Code = "INVALID_POWER_UP"
	CodePlayerNotInSession   Code = "PLAYER_NOT_IN_SESSION"
	CodeSubmissionPending    Code = "SUBMISSION_PENDING"
	CodeInvalidAction        Code = "INVALID_ACTION"
	CodeOracleUnavailable    Code = "ORACLE_UNAVAILABLE"
	CodeInternal             Code = "INTERNAL"
)

// Error is a player-facing game error. Two errors match with errors.Is when
// their codes are equal, so callers may add detail to the message freely.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrNotYourTurn          = newError(CodeNotYourTurn, "it is not your turn")
	ErrSessionNotActive     = newError(CodeSessionNotActive, "session is not active")
	ErrSessionNotWaiting    = newError(CodeSessionNotWaiting, "session has already started")
	ErrSessionNotFound      = newError(CodeSessionNotFound, "session not found")
	ErrDuplicateDisplayName = newError(CodeDuplicateDisplayName, "display name already taken in this session")
	ErrInvalidDisplayName   = newError(CodeInvalidDisplayName, "display name must be 3-20 characters")
	ErrSessionFull          = newError(CodeSessionFull, "session is full")
	ErrInvalidWordInput     = newError(CodeInvalidWordInput, "word is empty or too short")
	ErrPowerUpNotHeld       = newError(CodePowerUpNotHeld, "no unused power-up of that kind")
	ErrInvalidPowerUp       = newError(CodeInvalidPowerUp, "unknown power-up kind")
	ErrPlayerNotInSession   = newError(CodePlayerNotInSession, "player is not in this session")
	ErrSubmissionPending    = newError(CodeSubmissionPending, "a submission is already being checked")
	ErrInvalidAction        = newError(CodeInvalidAction, "invalid action")
	ErrOracleUnavailable    = newError(CodeOracleUnavailable, "dictionary unavailable")
)

// CodeOf returns the game code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}
