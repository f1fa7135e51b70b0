package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/chess-relay/game/engine"
	"github.com/wricardo/chess-relay/game/service"
)

// MockSessionViewer implements SessionViewer for testing
type MockSessionViewer struct {
	SnapshotFunc func(sessionID string) (*service.SessionInfo, error)
	SessionsFunc func() []*service.SessionInfo
}

func (m *MockSessionViewer) Snapshot(sessionID string) (*service.SessionInfo, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(sessionID)
	}
	return &service.SessionInfo{ID: sessionID, Status: service.StatusWaiting}, nil
}

func (m *MockSessionViewer) Sessions() []*service.SessionInfo {
	if m.SessionsFunc != nil {
		return m.SessionsFunc()
	}
	return []*service.SessionInfo{}
}

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

// MockMCPHandler implements MCPHandler for testing
type MockMCPHandler struct {
	HandleMessageFunc func(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

func (m *MockMCPHandler) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return m.HandleMessageFunc(ctx, message)
}

// Test helpers
func setupTestServer(viewer *MockSessionViewer) *Server {
	return NewServer(Options{
		Sessions:    viewer,
		Connections: fixedCounter(3),
	})
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	viewer := &MockSessionViewer{
		SessionsFunc: func() []*service.SessionInfo {
			return []*service.SessionInfo{{ID: "g1"}, {ID: "g2"}}
		},
	}
	server := setupTestServer(viewer)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
	if resp["sessions"].(float64) != 2 {
		t.Errorf("Expected 2 sessions, got %v", resp["sessions"])
	}
	if resp["connections"].(float64) != 3 {
		t.Errorf("Expected 3 connections, got %v", resp["connections"])
	}
}

func TestListSessions(t *testing.T) {
	tests := []struct {
		name          string
		sessions      []*service.SessionInfo
		expectedCount float64
	}{
		{
			name: "List multiple sessions",
			sessions: []*service.SessionInfo{
				{ID: "g1", Status: service.StatusActive, WhitePlayerID: "p1", BlackPlayerID: "p2", Occupied: 2},
				{ID: "g2", Status: service.StatusWaiting, WhitePlayerID: "p3", Occupied: 1},
			},
			expectedCount: 2,
		},
		{
			name:          "Handle empty session list",
			sessions:      []*service.SessionInfo{},
			expectedCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockSessionViewer{
				SessionsFunc: func() []*service.SessionInfo { return tt.sessions },
			})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions", nil))

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    float64               `json:"count"`
				Sessions []service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != tt.expectedCount {
				t.Errorf("Expected count %v, got %v", tt.expectedCount, resp.Count)
			}
			if len(resp.Sessions) != len(tt.sessions) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.sessions), len(resp.Sessions))
			}
			for i := range tt.sessions {
				if resp.Sessions[i].ID != tt.sessions[i].ID {
					t.Errorf("Expected session %s at %d, got %s", tt.sessions[i].ID, i, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	viewer := &MockSessionViewer{
		SnapshotFunc: func(sessionID string) (*service.SessionInfo, error) {
			if sessionID != "g1" {
				return nil, fmt.Errorf("session %q not found", sessionID)
			}
			result := engine.WinBy(engine.ReasonCheckmate, engine.Black)
			return &service.SessionInfo{
				ID:          "g1",
				Status:      service.StatusFinished,
				Turn:        engine.White,
				MoveHistory: []string{"f3", "e5", "g4", "Qh4#"},
				Result:      &result,
			}, nil
		},
	}
	server := setupTestServer(viewer)

	t.Run("Get existing session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions/g1", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var resp service.SessionInfo
		parseResponse(t, w, &resp)
		if resp.Status != service.StatusFinished {
			t.Errorf("Expected finished, got %s", resp.Status)
		}
		if len(resp.MoveHistory) != 4 {
			t.Errorf("Expected 4 moves, got %v", resp.MoveHistory)
		}
		if resp.Result == nil || resp.Result.Winner != engine.Black {
			t.Errorf("Expected black to have won, got %+v", resp.Result)
		}
	})

	t.Run("Get missing session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions/nope", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}

		var resp map[string]string
		parseResponse(t, w, &resp)
		if resp["error"] != `session "nope" not found` {
			t.Errorf("Unexpected error %q", resp["error"])
		}
	})
}

func TestMethodNotAllowed(t *testing.T) {
	server := setupTestServer(&MockSessionViewer{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/g1", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestMCPEndpoint(t *testing.T) {
	var received string
	server := NewServer(Options{
		Sessions: &MockSessionViewer{},
		MCP: &MockMCPHandler{
			HandleMessageFunc: func(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
				received = string(message)
				if bytes.Contains(message, []byte(`"notifications/initialized"`)) {
					return nil
				}
				return map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": map[string]interface{}{}}
			},
		},
	})

	t.Run("Request", func(t *testing.T) {
		body := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/mcp", body))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if !bytes.Contains([]byte(received), []byte(`"tools/list"`)) {
			t.Errorf("Handler received %s", received)
		}

		var resp map[string]interface{}
		parseResponse(t, w, &resp)
		if resp["jsonrpc"] != "2.0" {
			t.Errorf("Unexpected response %v", resp)
		}
	})

	t.Run("Notification", func(t *testing.T) {
		body := map[string]interface{}{"jsonrpc": "2.0", "method": "notifications/initialized"}
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/mcp", body))

		if w.Code != http.StatusAccepted {
			t.Errorf("Expected status 202, got %d", w.Code)
		}
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/mcp", nil))

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405, got %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server := NewServer(Options{
		Sessions: &MockSessionViewer{},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("chess_relay_sessions_open 0\n"))
		}),
	})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("chess_relay_sessions_open")) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestWebSocketRouting(t *testing.T) {
	var hits []string
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>chess</html>"), 0o644); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}

	server := NewServer(Options{
		Sessions:  &MockSessionViewer{},
		WebSocket: ws,
		StaticDir: dir,
	})

	upgrade := func(path string) *http.Request {
		req := makeRequest("GET", path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	for _, path := range []string{"/ws", "/"} {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, upgrade(path))
		if w.Code != http.StatusSwitchingProtocols {
			t.Errorf("Expected upgrade on %s, got %d", path, w.Code)
		}
	}
	if len(hits) != 2 {
		t.Errorf("Expected 2 websocket hits, got %v", hits)
	}

	// a plain GET on / serves the browser client
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("chess")) {
		t.Errorf("Expected index.html, got %s", w.Body.String())
	}
	if len(hits) != 2 {
		t.Errorf("Static request reached the websocket handler")
	}
}
