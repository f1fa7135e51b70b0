package engine

// Role identifies one of the two participant slots of a game
type Role string

const (
	White Role = "white"
	Black Role = "black"
)

// Roles lists the slots in assignment order
var Roles = [2]Role{White, Black}

// Opponent returns the other role
func (r Role) Opponent() Role {
	if r == White {
		return Black
	}
	return White
}

// Index returns the slot index of the role, or -1 for an unknown role
func (r Role) Index() int {
	switch r {
	case White:
		return 0
	case Black:
		return 1
	}
	return -1
}

// OutcomeKind classifies a terminal condition
type OutcomeKind int

const (
	NoOutcome OutcomeKind = iota
	Win
	Draw
)

// Reason explains why a game ended
type Reason string

const (
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonDraw                 Reason = "draw"
	ReasonOpponentDisconnected Reason = "opponent_disconnected"
	ReasonResignation          Reason = "resignation"
)

// Outcome is the terminal result of a game. Winner is only set when Kind is Win.
type Outcome struct {
	Kind   OutcomeKind `json:"-"`
	Reason Reason      `json:"reason"`
	Winner Role        `json:"winner,omitempty"`
}

// Terminal reports whether the outcome ends the game
func (o Outcome) Terminal() bool {
	return o.Kind != NoOutcome
}

// WinBy builds a decisive outcome
func WinBy(reason Reason, winner Role) Outcome {
	return Outcome{Kind: Win, Reason: reason, Winner: winner}
}

// DrawBy builds a drawn outcome
func DrawBy(reason Reason) Outcome {
	return Outcome{Kind: Draw, Reason: reason}
}

// MovePayload is the inbound shape of a move: two squares plus an optional promotion piece
type MovePayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// State is the engine-owned game state. The coordinator treats it as opaque.
type State any

// Action is the engine-owned decoded representation of a move.
type Action any
