// Package service provides the session coordinator of the chess relay.
//
// The service package implements:
//   - The Session entity: two role slots, lifecycle status and move history
//   - The Channel contract a transport must satisfy
//   - The wire protocol: decoded inbound events and outbound messages
//   - The error taxonomy reported to clients
//   - The Coordinator: join, move, resign and disconnect handling
//
// Architecture:
//
// The service layer sits between the transport layer (WebSocket) and the
// rules engine. Transports decode frames with DecodeEvent and hand the
// resulting Event to Coordinator.Handle together with the Channel it arrived
// on. The Coordinator resolves the session through a SessionRegistry, consults
// the engine.Rules collaborator and broadcasts the authoritative state to the
// Channels held in the session's slots.
//
// Usage:
//
//	registry := session.NewRegistry(rules)
//	coordinator := service.NewCoordinator(registry, engine.NewChessRules(), logger)
//
//	ev, err := service.DecodeEvent(frame)
//	if err != nil {
//		coordinator.Reject(ch, err)
//		return
//	}
//	coordinator.Handle(ctx, ch, ev)
//
//	// when the connection terminates
//	coordinator.Disconnect(ch, gameID)
//
// Lifecycle:
//
// A session starts waiting, becomes active once both slots have been filled,
// and finishes on checkmate, a draw, a resignation, or when a participant of an
// active game disconnects. It is dropped from the registry as soon as its last
// participant leaves, whatever its status.
//
// Concurrency:
//
// Every operation takes the session's lock for its whole check-then-act
// sequence and broadcasts before releasing it, so both participants observe a
// session's messages in the same order. Channel.Send must not block.
package service
