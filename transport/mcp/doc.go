// Package mcp exposes read-only operator tools for the chess relay over the
// Model Context Protocol.
//
// The tools are a thin proxy: every call is answered by the relay's REST API,
// so the same Client serves both the /mcp HTTP endpoint and the stdio-mcp
// command pointed at a remote relay.
//
// Tools:
//   - server_health: session and connection counts
//   - list_sessions: one line per live session
//   - get_session: players, status, numbered move list, result and a drawn board
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8765")
//	server.ServeStdio(client.GetMCPServer())
package mcp
