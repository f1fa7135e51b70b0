// Command relayctl joins a game on a running chess relay and plays a fixed
// list of moves, printing every message it receives. It is meant for smoke
// tests and for watching a game from the terminal.
//
//	relayctl --game g1 --player alice e2e4 g1f3
//	relayctl --game g1 --player bob e7e5 b8c6
//
// With no moves it only follows the game until it ends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/chess-relay/game/engine"
	"github.com/wricardo/chess-relay/game/service"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "relayctl",
		Usage:     "join a chess relay game and play moves",
		ArgsUsage: "[move ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "ws://localhost:8765/ws",
				Usage:   "websocket URL of the relay",
				Sources: cli.EnvVars("RELAY_URL"),
			},
			&cli.StringFlag{
				Name:     "game",
				Usage:    "game ID to join",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "player",
				Usage:    "player ID to join as",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Minute,
				Usage: "give up after this long",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			moves := make([]engine.MovePayload, 0, cmd.Args().Len())
			for _, arg := range cmd.Args().Slice() {
				move, err := parseMove(arg)
				if err != nil {
					return err
				}
				moves = append(moves, move)
			}

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, cmd.String("url"), nil)
			if err != nil {
				return errors.Wrapf(err, "connect to %s", cmd.String("url"))
			}
			defer conn.Close()

			// unblock reads once the deadline passes
			go func() {
				<-ctx.Done()
				conn.Close()
			}()

			return play(conn, out, cmd.String("game"), cmd.String("player"), moves)
		},
	}
}

// parseMove reads a UCI move such as "e2e4" or "e7e8q"
func parseMove(s string) (engine.MovePayload, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return engine.MovePayload{}, errors.Newf("invalid move %q: expected UCI such as e2e4 or e7e8q", s)
	}
	return engine.MovePayload{From: s[0:2], To: s[2:4], Promotion: s[4:]}, nil
}

type inbound struct {
	Type    string          `json:"type"`
	Color   engine.Role     `json:"color"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// play joins game as player and sends one move each time it is this player's
// turn. It returns when the moves run out, the game ends or a request is rejected.
func play(conn *websocket.Conn, out io.Writer, game, player string, moves []engine.MovePayload) error {
	join := service.JoinEvent{GameID: game, PlayerID: player}
	if err := conn.WriteJSON(outbound{Type: service.TypeJoinGame, Data: join}); err != nil {
		return errors.Wrap(err, "join")
	}

	var (
		color engine.Role
		next  int
	)
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return errors.Wrap(err, "read")
		}

		switch msg.Type {
		case service.TypePlayerColor:
			color = msg.Color
			fmt.Fprintf(out, "joined %s as %s\n", game, color)

		case service.TypeGameState:
			var state service.GameStateData
			if err := json.Unmarshal(msg.Data, &state); err != nil {
				return errors.Wrap(err, "decode game state")
			}
			fmt.Fprintf(out, "[%s] %s to move | %s\n", state.Status, state.Turn, strings.Join(state.MoveHistory, " "))

			if state.Status != service.StatusActive || state.Turn != color || len(moves) == 0 {
				continue
			}
			if next == len(moves) {
				return nil
			}
			move := moves[next]
			next++
			fmt.Fprintf(out, "playing %s%s%s\n", move.From, move.To, move.Promotion)
			ev := service.MoveEvent{GameID: game, PlayerID: player, Move: &move}
			if err := conn.WriteJSON(outbound{Type: service.TypeMakeMove, Data: ev}); err != nil {
				return errors.Wrap(err, "send move")
			}

		case service.TypeGameOver:
			var outcome engine.Outcome
			if err := json.Unmarshal(msg.Data, &outcome); err != nil {
				return errors.Wrap(err, "decode game over")
			}
			if outcome.Winner != "" {
				fmt.Fprintf(out, "game over: %s wins by %s\n", outcome.Winner, outcome.Reason)
			} else {
				fmt.Fprintf(out, "game over: draw by %s\n", outcome.Reason)
			}
			return nil

		case service.TypeError:
			return errors.Newf("relay rejected request: %s (%s)", msg.Message, msg.Code)

		default:
			fmt.Fprintf(out, "ignoring %s message\n", msg.Type)
		}
	}
}
