// internal/game/errors.go
package game

import "errors"

// ErrorKind classifies coordinator failures.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // Malformed or missing payload fields.
	KindNotFound   ErrorKind = "not_found"  // Room or player absent.
	KindState      ErrorKind = "state"      // Operation invalid for the room's phase.
	KindInternal   ErrorKind = "internal"   // Unexpected failure while handling.
)

// Error is a coordinator failure. Message is safe to show to the client.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrRoomNameRequired = newError(KindValidation, "Room name is required")
	ErrIdentityRequired = newError(KindValidation, "Username and avatar are required")
	ErrHandsMismatch    = newError(KindValidation, "Number of hands does not match number of players")
	ErrInvalidPayload   = newError(KindValidation, "Discarded cards must be an array of cards")
	ErrInvalidCardCount = newError(KindValidation, "Card count must not be negative")
	ErrChallengerNeeded = newError(KindValidation, "Challenger username is required")

	ErrRoomNotFound    = newError(KindNotFound, "Room not found")
	ErrPlayerNotFound  = newError(KindNotFound, "Player not found in room")
	ErrPlayersNotFound = newError(KindNotFound, "Players not found")

	ErrRoomExists          = newError(KindState, "Room name already exists")
	ErrIncorrectPassword   = newError(KindState, "Incorrect password")
	ErrRoomFull            = newError(KindState, "Room is full")
	ErrAlreadyInRoom       = newError(KindState, "Already in room")
	ErrInsufficientPlayers = newError(KindState, "At least 2 players are required to start the game")
	ErrGameAlreadyStarted  = newError(KindState, "Game already started")
	ErrGameNotStarted      = newError(KindState, "Game has not started")
	ErrGameNotActive       = newError(KindState, "Game is not active")
	ErrNoPriorMove         = newError(KindState, "No previous move to challenge")

	ErrInternal = newError(KindInternal, "Internal server error")
)

// KindOf returns the kind of err, or KindInternal for errors the coordinator
// did not produce.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}
