// Package engine defines the rules collaborator of the chess relay.
//
// The engine package implements:
//   - The Rules contract consumed by the session coordinator
//   - Role, Outcome and MovePayload value types shared with the wire protocol
//   - ChessRules, a standard chess implementation backed by github.com/notnil/chess
//
// Core Types:
//
// Rules is a pure boundary: state goes in, notation, a new state or a terminal
// result comes out. The coordinator never inspects State or Action values; it
// only asks the engine whose turn it is, whether an action is legal, and
// whether the game is over. Tests substitute a stub Rules implementation.
//
// Usage:
//
//	rules := engine.NewChessRules()
//	state := rules.InitialState()
//
//	action, err := rules.DecodeAction(engine.MovePayload{From: "e2", To: "e4"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if rules.IsLegal(state, action) {
//		san := rules.Notate(state, action) // "e4"
//		state, _ = rules.Apply(state, action)
//	}
//
// Terminal Conditions:
//
// Terminal reports at most one reason, evaluated in a fixed order: checkmate,
// stalemate, insufficient material, then fivefold repetition or the
// seventy-five-move rule (both reported as "draw").
package engine
