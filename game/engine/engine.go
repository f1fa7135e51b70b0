package engine

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/notnil/chess"
)

var (
	ErrMalformedMove = errors.New("malformed move")
	ErrInvalidState  = errors.New("invalid engine state")
)

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// Rules is the game-specific collaborator of the coordinator. Implementations own
// legality, notation and terminal detection; callers never inspect State directly.
type Rules interface {
	// InitialState returns the starting position of a new game
	InitialState() State
	// Turn returns the role expected to act next
	Turn(state State) Role
	// DecodeAction converts an inbound payload; fails with ErrMalformedMove
	DecodeAction(payload MovePayload) (Action, error)
	IsLegal(state State, action Action) bool
	// Notate returns the canonical notation of action, computed before Apply
	Notate(state State, action Action) string
	Apply(state State, action Action) (State, error)
	Terminal(state State) Outcome
	// Encode returns the transmissible snapshot of state
	Encode(state State) string
}

// ChessRules implements Rules for standard chess.
// States are *chess.Game values, actions are lower-case UCI strings.
type ChessRules struct{}

// NewChessRules creates the chess rules engine
func NewChessRules() *ChessRules {
	return &ChessRules{}
}

// InitialState returns a game in the standard starting position
func (r *ChessRules) InitialState() State {
	return chess.NewGame()
}

// Turn returns the side to move
func (r *ChessRules) Turn(state State) Role {
	game, ok := state.(*chess.Game)
	if !ok {
		return White
	}
	if game.Position().Turn() == chess.Black {
		return Black
	}
	return White
}

// DecodeAction validates squares and the promotion token and returns the UCI string
func (r *ChessRules) DecodeAction(payload MovePayload) (Action, error) {
	from := strings.ToLower(strings.TrimSpace(payload.From))
	to := strings.ToLower(strings.TrimSpace(payload.To))
	if !squarePattern.MatchString(from) {
		return nil, errors.Wrapf(ErrMalformedMove, "invalid source square %q", payload.From)
	}
	if !squarePattern.MatchString(to) {
		return nil, errors.Wrapf(ErrMalformedMove, "invalid target square %q", payload.To)
	}
	if from == to {
		return nil, errors.Wrapf(ErrMalformedMove, "source and target are both %s", from)
	}

	uci := from + to
	if promo := strings.ToLower(strings.TrimSpace(payload.Promotion)); promo != "" {
		switch promo {
		case "q", "r", "b", "n":
			uci += promo
		default:
			return nil, errors.Wrapf(ErrMalformedMove, "invalid promotion %q", payload.Promotion)
		}
	}
	return uci, nil
}

// IsLegal reports whether action is among the valid moves of the position
func (r *ChessRules) IsLegal(state State, action Action) bool {
	_, ok := r.lookup(state, action)
	return ok
}

// Notate returns the standard algebraic notation of action
func (r *ChessRules) Notate(state State, action Action) string {
	move, ok := r.lookup(state, action)
	if !ok {
		return ""
	}
	game := state.(*chess.Game)
	return chess.AlgebraicNotation{}.Encode(game.Position(), move)
}

// Apply plays action on the game in place
func (r *ChessRules) Apply(state State, action Action) (State, error) {
	game, ok := state.(*chess.Game)
	if !ok {
		return state, ErrInvalidState
	}
	move, ok := r.lookup(state, action)
	if !ok {
		return state, errors.Newf("move %v is not legal", action)
	}
	if err := game.Move(move); err != nil {
		return state, errors.Wrap(err, "apply move")
	}
	return game, nil
}

// Terminal reports the game result. Only one reason is reported, checked in the
// order checkmate, stalemate, insufficient material, repetition/move limit.
func (r *ChessRules) Terminal(state State) Outcome {
	game, ok := state.(*chess.Game)
	if !ok {
		return Outcome{}
	}

	switch game.Method() {
	case chess.Checkmate:
		// the side to move is the side that got mated
		return WinBy(ReasonCheckmate, r.Turn(game).Opponent())
	case chess.Stalemate:
		return DrawBy(ReasonStalemate)
	case chess.InsufficientMaterial:
		return DrawBy(ReasonInsufficientMaterial)
	case chess.FivefoldRepetition, chess.SeventyFiveMoveRule:
		return DrawBy(ReasonDraw)
	}
	return Outcome{}
}

// Encode returns the FEN of the current position
func (r *ChessRules) Encode(state State) string {
	game, ok := state.(*chess.Game)
	if !ok {
		return ""
	}
	return game.FEN()
}

func (r *ChessRules) lookup(state State, action Action) (*chess.Move, bool) {
	game, ok := state.(*chess.Game)
	if !ok {
		return nil, false
	}
	uci, ok := action.(string)
	if !ok {
		return nil, false
	}
	for _, move := range game.ValidMoves() {
		if move.String() == uci {
			return move, true
		}
	}
	return nil, false
}
