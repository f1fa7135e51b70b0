// Package api provides the HTTP surface of the chess relay.
//
// The api package implements:
//   - WebSocket upgrade routing to the connection handler
//   - Read-only REST endpoints over the live sessions
//   - The Prometheus scrape endpoint
//   - The MCP JSON-RPC endpoint for operator tools
//   - Static file serving for the browser client
//
// Endpoints:
//
//   - GET /ws, or any upgrade request on / - WebSocket connection
//   - GET /api/health - {status, sessions, connections}
//   - GET /api/sessions - {count, sessions} ordered by session id
//   - GET /api/sessions/{id} - one session, 404 when unknown
//   - GET /metrics - Prometheus exposition
//   - POST /mcp - MCP JSON-RPC message
//   - everything else - files under the static directory
//
// Games are only ever mutated over the websocket; the REST API has no write
// operations.
//
// Usage:
//
//	server := api.NewServer(api.Options{
//		Sessions:    coordinator,
//		Connections: hub,
//		WebSocket:   websocket.NewHandler(hub, coordinator, cfg, logger),
//		Metrics:     promhttp.Handler(),
//		StaticDir:   cfg.StaticDir,
//		Logger:      logger,
//	})
//	http.ListenAndServe(cfg.Addr(), server)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "session \"g1\" not found"}
package api
