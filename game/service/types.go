package service

import (
	"sync"
	"time"

	"github.com/wricardo/chess-relay/game/engine"
)

// Status is the lifecycle stage of a session
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Channel is one participant's connection as seen by the coordinator.
// Send must not block; it may fail once the connection is closed.
type Channel interface {
	Send(msg any) error
	// ID identifies the connection in logs
	ID() string
}

// Slot is one of the two role positions of a session
type Slot struct {
	Channel       Channel
	ParticipantID string
}

// Occupied reports whether a live connection holds the slot
func (s *Slot) Occupied() bool {
	return s.Channel != nil
}

// Session represents one game instance. All fields are guarded by the session
// lock, which only the Coordinator takes.
type Session struct {
	ID        string
	State     engine.State
	Slots     [2]Slot
	Occupied  int
	Status    Status
	History   []string
	Result    *engine.Outcome
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
	// closed is set once the session has been removed from the registry
	closed bool
}

// NewSession creates a waiting session holding the given initial state
func NewSession(id string, state engine.State) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		State:     state,
		Status:    StatusWaiting,
		History:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Slot returns the slot for role
func (s *Session) Slot(role engine.Role) *Slot {
	return &s.Slots[role.Index()]
}

// RoleOf returns the role held by participantID
func (s *Session) RoleOf(participantID string) (engine.Role, bool) {
	if participantID == "" {
		return "", false
	}
	for _, role := range engine.Roles {
		if s.Slot(role).ParticipantID == participantID {
			return role, true
		}
	}
	return "", false
}

// RoleOfChannel returns the role whose slot is held by ch
func (s *Session) RoleOfChannel(ch Channel) (engine.Role, bool) {
	if ch == nil {
		return "", false
	}
	for _, role := range engine.Roles {
		if s.Slot(role).Channel == ch {
			return role, true
		}
	}
	return "", false
}

// SessionRegistry is the process-wide session store used by the Coordinator
type SessionRegistry interface {
	GetOrCreate(id string) *Session
	Get(id string) (*Session, error)
	Remove(id string)
	List() []*Session
	Count() int
}

// SessionInfo is a read-only snapshot of a session for the HTTP and MCP views
type SessionInfo struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	FEN           string          `json:"fen"`
	Turn          engine.Role     `json:"turn"`
	WhitePlayerID string          `json:"white_player_id,omitempty"`
	BlackPlayerID string          `json:"black_player_id,omitempty"`
	Occupied      int             `json:"occupied"`
	MoveHistory   []string        `json:"move_history"`
	Result        *engine.Outcome `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
