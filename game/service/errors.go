package service

import (
	"github.com/cockroachdb/errors"
)

// Request errors. Each is recovered at the request boundary and reported only to the
// requester; none of them alters session state or closes the connection.
var (
	ErrMissingField       = errors.New("missing required field")
	ErrSessionFull        = errors.New("game is full")
	ErrAlreadySeated      = errors.New("connection already holds a seat in this game")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrMalformedAction    = errors.New("malformed move")
	ErrIllegalAction      = errors.New("illegal move")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrDecode             = errors.New("invalid message format")
	ErrGameFinished       = errors.New("game is already finished")
	ErrGameNotActive      = errors.New("game has not started")
	ErrNotParticipant     = errors.New("not a participant of this game")
	ErrInternal           = errors.New("internal server error")
)

// ErrChannelClosed is returned by Channel.Send after the connection is gone
var ErrChannelClosed = errors.New("channel closed")

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrMissingField, "missing_field"},
	{ErrSessionFull, "session_full"},
	{ErrAlreadySeated, "already_seated"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrMalformedAction, "malformed_action"},
	{ErrIllegalAction, "illegal_action"},
	{ErrUnknownMessageType, "unknown_message_type"},
	{ErrDecode, "decode_error"},
	{ErrGameFinished, "game_finished"},
	{ErrGameNotActive, "game_not_active"},
	{ErrNotParticipant, "not_participant"},
}

// ErrorCode maps an error to its stable wire code. Anything outside the
// taxonomy is reported as internal_error.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal_error"
}

// errorMessageFor returns the text sent to the client. Internal faults never leak
// their details.
func errorMessageFor(err error) string {
	if ErrorCode(err) == "internal_error" {
		return ErrInternal.Error()
	}
	return err.Error()
}
