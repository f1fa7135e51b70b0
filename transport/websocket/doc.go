// Package websocket provides the WebSocket transport of the chess relay.
//
// The websocket package implements:
//   - The connection handler: HTTP upgrade and per-connection read/write pumps
//   - Client, the service.Channel implementation backed by a connection
//   - The Hub tracking live connections
//
// Architecture:
//
// Each connection is served by two goroutines. readPump decodes every inbound
// frame with service.DecodeEvent and hands it to the Coordinator together with
// the Client it arrived on. writePump is the only goroutine writing to the
// connection; it drains the Client's bounded send queue one text frame per
// message and sends keepalive pings.
//
// Message Protocol:
//
// Frames are JSON objects:
//   - Incoming: {"type": "join_game", "data": {"game_id": "g1", "player_id": "p1"}}
//   - Outgoing: player_color, game_state, game_over and error messages
//
// Connection Lifecycle:
//
// 1. Client connects to /ws (or / with an upgrade request)
// 2. Connection registered with the hub
// 3. Client joins one or more sessions and relays moves
// 4. Disconnection releases every joined session, then unregisters from the hub
//
// Backpressure:
//
// Client.Send never blocks. A client whose queue is full is closed, and the
// close runs the same disconnect path as a dropped connection.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	handler := websocket.NewHandler(hub, coordinator, cfg, logger)
//	router.Handle("/ws", handler)
package websocket
