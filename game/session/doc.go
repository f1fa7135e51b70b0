// Package session provides the session registry of the chess relay.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Creation of a waiting session on first reference to an identifier
//   - Removal once the coordinator has released the last participant
//
// Core Types:
//
// Registry maps session identifiers to *service.Session values. It only guards
// the map itself; the fields of a session are guarded by the session's own lock,
// which the service.Coordinator takes. Identifiers are opaque, case-sensitive
// strings chosen by the clients.
//
// Usage:
//
//	registry := session.NewRegistry(engine.NewChessRules())
//
//	sess := registry.GetOrCreate("g1")
//
//	sess, err := registry.Get("g1")
//	if errors.Is(err, session.ErrSessionNotFound) {
//		// never created, or already removed
//	}
//
//	registry.Remove("g1")
//
// Lifetime:
//
// Sessions live in memory only. Nothing is persisted across restarts, and a
// session is never expired while a participant is still connected.
package session
