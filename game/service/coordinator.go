package service

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/wricardo/chess-relay/game/engine"
	"github.com/wricardo/chess-relay/metrics"
)

// Coordinator arbitrates every session: role assignment, turn order, move relay
// and end-of-game resolution. Each operation holds the session lock for its whole
// check-then-act sequence, including the broadcasts it produces.
type Coordinator struct {
	sessions SessionRegistry
	rules    engine.Rules
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator over the given registry and rules engine
func NewCoordinator(sessions SessionRegistry, rules engine.Rules, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		sessions: sessions,
		rules:    rules,
		logger:   logger,
	}
}

// Handle dispatches one decoded event. Any error, including a recovered panic,
// is reported to ch only and returned to the caller.
func (c *Coordinator) Handle(ctx context.Context, ch Channel, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while handling event",
				zap.String("channel", ch.ID()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = errors.Wrapf(ErrInternal, "%v", r)
		}
		if err != nil {
			c.Reject(ch, err)
		}
	}()

	switch e := ev.(type) {
	case JoinEvent:
		_, err = c.Join(ctx, ch, e.GameID, e.PlayerID)
	case MoveEvent:
		err = c.Move(ctx, ch, e.GameID, e.PlayerID, e.Move)
	case ResignEvent:
		err = c.Resign(ctx, ch, e.GameID, e.PlayerID)
	default:
		err = ErrUnknownMessageType
	}
	return err
}

// Reject sends the error reply for err to ch
func (c *Coordinator) Reject(ch Channel, err error) {
	code := ErrorCode(err)
	metrics.RequestsRejected.WithLabelValues(code).Inc()
	if code == "internal_error" {
		c.logger.Error("request failed", zap.String("channel", ch.ID()), zap.Error(err))
	} else {
		c.logger.Info("request rejected", zap.String("channel", ch.ID()), zap.String("code", code), zap.Error(err))
	}
	c.send(ch, NewErrorMessage(err))
}

// Join places participantID in sessionID, creating the session on first reference.
// A participant already seated is treated as reconnecting: its slot is rebound to ch
// and it receives its role and the current snapshot.
func (c *Coordinator) Join(ctx context.Context, ch Channel, sessionID, participantID string) (engine.Role, error) {
	if sessionID == "" {
		return "", errors.Wrap(ErrMissingField, "game_id")
	}
	if participantID == "" {
		return "", errors.Wrap(ErrMissingField, "player_id")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sess := c.acquire(sessionID)
	defer sess.mu.Unlock()

	log := c.logger.With(zap.String("session", sessionID), zap.String("participant", participantID))

	// one connection seats at most one participant per session
	if held, ok := sess.RoleOfChannel(ch); ok && sess.Slot(held).ParticipantID != participantID {
		log.Warn("connection already seated", zap.String("role", string(held)))
		return "", errors.Wrapf(ErrAlreadySeated, "connection plays %s", held)
	}

	if role, ok := sess.RoleOf(participantID); ok {
		sess.Slot(role).Channel = ch
		log.Info("participant reconnected", zap.String("role", string(role)))
		c.send(ch, PlayerColorMessage{Type: TypePlayerColor, Color: role})
		c.send(ch, c.snapshot(sess))
		return role, nil
	}

	var assigned engine.Role
	for _, role := range engine.Roles {
		if !sess.Slot(role).Occupied() {
			assigned = role
			break
		}
	}
	if assigned == "" {
		log.Warn("game is full")
		return "", ErrSessionFull
	}

	slot := sess.Slot(assigned)
	slot.Channel = ch
	slot.ParticipantID = participantID
	sess.Occupied++
	sess.UpdatedAt = time.Now()
	log.Info("participant joined", zap.String("role", string(assigned)), zap.Int("occupied", sess.Occupied))

	if sess.Occupied == 2 && sess.Status == StatusWaiting {
		sess.Status = StatusActive
		metrics.GamesStarted.Inc()
		log.Info("game is now active")
	}

	c.send(ch, PlayerColorMessage{Type: TypePlayerColor, Color: assigned})
	c.broadcast(sess, c.snapshot(sess))
	return assigned, nil
}

// Move validates and applies one move on behalf of participantID, then relays the
// new state to both participants, followed by a game_over event when the move ends the game.
func (c *Coordinator) Move(ctx context.Context, ch Channel, sessionID, participantID string, payload *engine.MovePayload) error {
	if sessionID == "" {
		return errors.Wrap(ErrMissingField, "game_id")
	}
	if participantID == "" {
		return errors.Wrap(ErrMissingField, "player_id")
	}
	if payload == nil {
		return errors.Wrap(ErrMissingField, "move")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	action, err := c.rules.DecodeAction(*payload)
	if err != nil {
		return errors.Mark(err, ErrMalformedAction)
	}

	sess, err := c.acquireExisting(sessionID)
	if err != nil {
		// nobody can hold a slot in a session that does not exist
		return ErrNotYourTurn
	}
	defer sess.mu.Unlock()

	log := c.logger.With(zap.String("session", sessionID), zap.String("participant", participantID))

	if sess.Status == StatusFinished {
		return ErrGameFinished
	}

	expected := c.rules.Turn(sess.State)
	requester, seated := sess.RoleOf(participantID)
	if !seated || requester != expected {
		log.Info("move out of turn", zap.String("expected", string(expected)), zap.String("role", string(requester)))
		return ErrNotYourTurn
	}

	if !c.rules.IsLegal(sess.State, action) {
		return errors.Wrapf(ErrIllegalAction, "%v", action)
	}

	notation := c.rules.Notate(sess.State, action)
	next, err := c.rules.Apply(sess.State, action)
	if err != nil {
		return errors.Wrapf(err, "apply %v", action)
	}

	sess.State = next
	sess.History = append(sess.History, notation)
	sess.UpdatedAt = time.Now()
	metrics.MovesAccepted.Inc()
	log.Info("move applied", zap.String("role", string(requester)), zap.String("move", notation), zap.Int("ply", len(sess.History)))

	c.broadcast(sess, c.snapshot(sess))

	if outcome := c.rules.Terminal(sess.State); outcome.Terminal() {
		c.finish(sess, outcome)
	}
	return nil
}

// Resign concedes an active game on behalf of participantID
func (c *Coordinator) Resign(ctx context.Context, ch Channel, sessionID, participantID string) error {
	if sessionID == "" {
		return errors.Wrap(ErrMissingField, "game_id")
	}
	if participantID == "" {
		return errors.Wrap(ErrMissingField, "player_id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sess, err := c.acquireExisting(sessionID)
	if err != nil {
		return ErrNotParticipant
	}
	defer sess.mu.Unlock()

	role, seated := sess.RoleOf(participantID)
	if !seated {
		return ErrNotParticipant
	}
	switch sess.Status {
	case StatusFinished:
		return ErrGameFinished
	case StatusWaiting:
		return ErrGameNotActive
	}

	c.finish(sess, engine.WinBy(engine.ReasonResignation, role.Opponent()))
	return nil
}

// Disconnect releases whatever slot ch holds in sessionID. It is called once per
// joined session when a connection terminates. A channel that no longer owns a
// slot, for example one replaced by a reconnect, is ignored.
func (c *Coordinator) Disconnect(ch Channel, sessionID string) {
	sess, err := c.acquireExisting(sessionID)
	if err != nil {
		return
	}
	defer sess.mu.Unlock()

	role, ok := sess.RoleOfChannel(ch)
	if !ok {
		return
	}

	log := c.logger.With(zap.String("session", sessionID), zap.String("role", string(role)))

	*sess.Slot(role) = Slot{}
	sess.Occupied--
	sess.UpdatedAt = time.Now()
	log.Info("participant left", zap.Int("occupied", sess.Occupied))

	if sess.Status == StatusActive && sess.Occupied < 2 {
		winner := role.Opponent()
		outcome := engine.WinBy(engine.ReasonOpponentDisconnected, winner)
		sess.Status = StatusFinished
		sess.Result = &outcome
		metrics.GamesFinished.WithLabelValues(string(outcome.Reason)).Inc()
		log.Info("game forfeited", zap.String("winner", string(winner)))

		if remaining := sess.Slot(winner); remaining.Occupied() {
			c.send(remaining.Channel, GameOverMessage{Type: TypeGameOver, Data: outcome})
		}
	}

	if sess.Occupied == 0 {
		sess.closed = true
		c.sessions.Remove(sess.ID)
		log.Info("session removed")
	}
}

// Snapshot returns a read-only view of sessionID
func (c *Coordinator) Snapshot(sessionID string) (*SessionInfo, error) {
	sess, err := c.acquireExisting(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot")
	}
	defer sess.mu.Unlock()
	return c.info(sess), nil
}

// Sessions returns read-only views of every live session ordered by id
func (c *Coordinator) Sessions() []*SessionInfo {
	sessions := c.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		if !sess.closed {
			result = append(result, c.info(sess))
		}
		sess.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// acquire resolves sessionID, creating it when unknown, and returns it locked.
// A session that was removed while we waited for its lock is re-resolved.
func (c *Coordinator) acquire(sessionID string) *Session {
	for {
		sess := c.sessions.GetOrCreate(sessionID)
		sess.mu.Lock()
		if !sess.closed {
			return sess
		}
		sess.mu.Unlock()
	}
}

// acquireExisting is acquire without creation. It returns the registry's
// lookup error for an unknown id.
func (c *Coordinator) acquireExisting(sessionID string) (*Session, error) {
	for {
		sess, err := c.sessions.Get(sessionID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		if !sess.closed {
			return sess, nil
		}
		sess.mu.Unlock()
	}
}

func (c *Coordinator) finish(sess *Session, outcome engine.Outcome) {
	sess.Status = StatusFinished
	sess.Result = &outcome
	sess.UpdatedAt = time.Now()
	metrics.GamesFinished.WithLabelValues(string(outcome.Reason)).Inc()
	c.logger.Info("game finished",
		zap.String("session", sess.ID),
		zap.String("reason", string(outcome.Reason)),
		zap.String("winner", string(outcome.Winner)))

	c.broadcast(sess, GameOverMessage{Type: TypeGameOver, Data: outcome})
}

func (c *Coordinator) snapshot(sess *Session) GameStateMessage {
	return GameStateMessage{
		Type: TypeGameState,
		Data: GameStateData{
			FEN:           c.rules.Encode(sess.State),
			Turn:          c.rules.Turn(sess.State),
			Status:        sess.Status,
			WhitePlayerID: optionalID(sess.Slot(engine.White).ParticipantID),
			BlackPlayerID: optionalID(sess.Slot(engine.Black).ParticipantID),
			MoveHistory:   append([]string{}, sess.History...),
		},
	}
}

func (c *Coordinator) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:            sess.ID,
		Status:        sess.Status,
		FEN:           c.rules.Encode(sess.State),
		Turn:          c.rules.Turn(sess.State),
		WhitePlayerID: sess.Slot(engine.White).ParticipantID,
		BlackPlayerID: sess.Slot(engine.Black).ParticipantID,
		Occupied:      sess.Occupied,
		MoveHistory:   append([]string{}, sess.History...),
		Result:        sess.Result,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
}

// broadcast sends msg to every occupied slot, white first
func (c *Coordinator) broadcast(sess *Session, msg any) {
	for _, role := range engine.Roles {
		if slot := sess.Slot(role); slot.Occupied() {
			c.send(slot.Channel, msg)
		}
	}
}

func (c *Coordinator) send(ch Channel, msg any) {
	if err := ch.Send(msg); err != nil {
		c.logger.Debug("send failed", zap.String("channel", ch.ID()), zap.Error(err))
	}
}
