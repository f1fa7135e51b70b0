package service

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/wricardo/chess-relay/game/engine"
)

// Inbound message types
const (
	TypeJoinGame = "join_game"
	TypeMakeMove = "make_move"
	TypeResign   = "resign"
)

// Outbound message types
const (
	TypePlayerColor = "player_color"
	TypeGameState   = "game_state"
	TypeGameOver    = "game_over"
	TypeError       = "error"
)

// Event is a decoded inbound request. The set of implementations is closed:
// JoinEvent, MoveEvent and ResignEvent.
type Event interface {
	isEvent()
	// Session returns the target session identifier
	Session() string
}

// JoinEvent asks to join (or rejoin) a session
type JoinEvent struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// MoveEvent proposes a move on behalf of a participant
type MoveEvent struct {
	GameID   string              `json:"game_id"`
	PlayerID string              `json:"player_id"`
	Move     *engine.MovePayload `json:"move"`
}

// ResignEvent concedes the game
type ResignEvent struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

func (JoinEvent) isEvent()   {}
func (MoveEvent) isEvent()   {}
func (ResignEvent) isEvent() {}

func (e JoinEvent) Session() string   { return e.GameID }
func (e MoveEvent) Session() string   { return e.GameID }
func (e ResignEvent) Session() string { return e.GameID }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses one inbound frame. A frame that is not a {type, data}
// object fails with ErrDecode; an unrecognized type fails with ErrUnknownMessageType.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode envelope"), ErrDecode)
	}

	var ev Event
	switch env.Type {
	case TypeJoinGame:
		var join JoinEvent
		if err := decodeData(env.Data, &join); err != nil {
			return nil, err
		}
		ev = join
	case TypeMakeMove:
		var move MoveEvent
		if err := decodeData(env.Data, &move); err != nil {
			return nil, err
		}
		ev = move
	case TypeResign:
		var resign ResignEvent
		if err := decodeData(env.Data, &resign); err != nil {
			return nil, err
		}
		ev = resign
	case "":
		return nil, errors.Wrap(ErrDecode, "missing message type")
	default:
		return nil, errors.Wrapf(ErrUnknownMessageType, "%q", env.Type)
	}
	return ev, nil
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return errors.Wrap(ErrMissingField, "data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Mark(errors.Wrap(err, "decode data"), ErrDecode)
	}
	return nil
}

// PlayerColorMessage tells a participant which role it holds
type PlayerColorMessage struct {
	Type  string      `json:"type"`
	Color engine.Role `json:"color"`
}

// GameStateData is the full snapshot broadcast after every change
type GameStateData struct {
	FEN           string      `json:"fen"`
	Turn          engine.Role `json:"turn"`
	Status        Status      `json:"status"`
	WhitePlayerID *string     `json:"white_player_id"`
	BlackPlayerID *string     `json:"black_player_id"`
	MoveHistory   []string    `json:"move_history"`
}

// GameStateMessage carries a GameStateData snapshot
type GameStateMessage struct {
	Type string        `json:"type"`
	Data GameStateData `json:"data"`
}

// GameOverMessage announces the end of a game
type GameOverMessage struct {
	Type string         `json:"type"`
	Data engine.Outcome `json:"data"`
}

// ErrorMessage rejects a single request
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewErrorMessage builds the error reply for err
func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    TypeError,
		Message: errorMessageFor(err),
		Code:    ErrorCode(err),
	}
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
