package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/notnil/chess"
	"github.com/samber/lo"

	"github.com/wricardo/chess-relay/game/service"
)

const (
	serverName    = "Chess Relay"
	serverVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess Relay - MCP Interface

Read-only operator tools for a running chess relay. Games are played by two
websocket clients; these tools only observe them.

AVAILABLE TOOLS:
- server_health: Live session and connection counts
- list_sessions: One line per session with its status and players
- get_session: Full detail of one session, including the board`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Report whether the relay is up and how many sessions and connections it holds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session: players, status, moves, result and board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session (game) ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return errors.New(msg)
		}
		return errors.Newf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return errors.Wrap(json.NewDecoder(resp.Body).Decode(result), "decode response")
	}

	return nil
}

// Tool handlers

func (c *Client) handleServerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health struct {
		Status      string `json:"status"`
		Sessions    int    `json:"sessions"`
		Connections int    `json:"connections"`
	}

	if err := c.apiCall(ctx, "GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nSessions: %d\nConnections: %d",
		health.Status, health.Sessions, health.Connections)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "\n- %s [%s] white=%s black=%s moves=%d",
			s.ID, s.Status, playerOrDash(s.WhitePlayerID), playerOrDash(s.BlackPlayerID), len(s.MoveHistory))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	fmt.Fprintf(&b, "Status: %s\n", session.Status)
	fmt.Fprintf(&b, "White: %s\n", playerOrDash(session.WhitePlayerID))
	fmt.Fprintf(&b, "Black: %s\n", playerOrDash(session.BlackPlayerID))
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))

	if session.Result != nil {
		if session.Result.Winner != "" {
			fmt.Fprintf(&b, "Result: %s wins by %s\n", session.Result.Winner, session.Result.Reason)
		} else {
			fmt.Fprintf(&b, "Result: draw (%s)\n", session.Result.Reason)
		}
	} else {
		fmt.Fprintf(&b, "To move: %s\n", session.Turn)
	}

	fmt.Fprintf(&b, "Moves: %s\n", formatMoves(session.MoveHistory))
	fmt.Fprintf(&b, "FEN: %s\n", session.FEN)

	if board := drawBoard(session.FEN); board != "" {
		b.WriteString("\n")
		b.WriteString(board)
	}
	return b.String()
}

// formatMoves numbers a SAN move list: "1. e4 e5 2. Nf3"
func formatMoves(moves []string) string {
	if len(moves) == 0 {
		return "(none)"
	}
	turns := lo.Chunk(moves, 2)
	parts := lo.Map(turns, func(pair []string, i int) string {
		return fmt.Sprintf("%d. %s", i+1, strings.Join(pair, " "))
	})
	return strings.Join(parts, " ")
}

// drawBoard renders a FEN position; it returns "" when fen does not parse
func drawBoard(fen string) string {
	if fen == "" {
		return ""
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return ""
	}
	return chess.NewGame(opt).Position().Board().Draw()
}

func playerOrDash(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
