// Command chess-relay starts the chess relay server.
//
// It supports two modes:
//  1. the root command (default) – runs the HTTP server exposing the websocket
//     relay, the read-only REST API, /metrics and an /mcp endpoint
//  2. "stdio-mcp" – runs the MCP operator tools over stdio against a running
//     relay, or against an internal one when none answers
//
// Every flag can also be set through the environment or a .env file, and an
// optional ngrok tunnel exposes the relay publicly during development.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/chess-relay/api"
	"github.com/wricardo/chess-relay/game/config"
	"github.com/wricardo/chess-relay/game/engine"
	"github.com/wricardo/chess-relay/game/service"
	"github.com/wricardo/chess-relay/game/session"
	"github.com/wricardo/chess-relay/metrics"
	"github.com/wricardo/chess-relay/transport/mcp"
	"github.com/wricardo/chess-relay/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chess Relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	cmd := newCommand()
	cmd.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		logger, err := newLogger(cmd.Bool("debug"))
		if err != nil {
			return ctx, err
		}
		if envErr == nil {
			logger.Info("loaded environment variables from .env file")
		} else if !os.IsNotExist(envErr) {
			logger.Warn("error loading .env file", zap.Error(envErr))
		}
		return withLogger(ctx, logger), nil
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name, err)
		os.Exit(1)
	}
}

// newCommand builds the root command and its flags
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "chess-relay",
		Usage:   "relay two-player chess games over websockets",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   config.DefaultHost,
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   config.DefaultStaticDir,
				Usage:   "directory served at / for the browser client (empty disables it)",
				Sources: cli.EnvVars("STATIC_DIR"),
			},
			&cli.IntFlag{
				Name:    "send-queue",
				Value:   config.DefaultSendQueueSize,
				Usage:   "outbound messages buffered per connection before it is dropped",
				Sources: cli.EnvVars("SEND_QUEUE_SIZE"),
			},
			&cli.StringSliceFlag{
				Name:    "allowed-origin",
				Usage:   "origin allowed to open a websocket (repeatable, empty allows any)",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the relay through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp"},
				Usage:   "serve the MCP operator tools over stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "base URL of a running relay (default: the local relay, started internally if absent)",
						Sources: cli.EnvVars("RELAY_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// configFromCommand assembles the server configuration from parsed flags
func configFromCommand(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	cfg.Host = cmd.String("host")
	cfg.Port = int(cmd.Int("port"))
	cfg.StaticDir = cmd.String("static-dir")
	cfg.SendQueueSize = int(cmd.Int("send-queue"))
	cfg.AllowedOrigins = config.ParseOrigins(cmd.StringSlice("allowed-origin")...)
	cfg.Debug = cmd.Bool("debug")
	cfg.Ngrok = config.NgrokConfig{
		Enabled:   cmd.Bool("ngrok"),
		AuthToken: cmd.String("ngrok-auth"),
		Domain:    cmd.String("ngrok-domain"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// relay is one wired instance of the server
type relay struct {
	hub     *websocket.Hub
	handler http.Handler
}

// newRelay wires the rules engine, registry, coordinator, transports and API.
// baseURL is where the MCP tools reach the REST API.
func newRelay(cfg *config.Config, baseURL string, logger *zap.Logger) *relay {
	rules := engine.NewChessRules()
	registry := session.NewRegistry(rules)
	coordinator := service.NewCoordinator(registry, rules, logger.Named("coordinator"))
	hub := websocket.NewHub(logger.Named("websocket"))

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := api.NewServer(api.Options{
		Sessions:    coordinator,
		Connections: hub,
		WebSocket:   websocket.NewHandler(hub, coordinator, cfg, logger.Named("websocket")),
		MCP:         mcp.NewClient(baseURL).GetMCPServer(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		StaticDir:   cfg.StaticDir,
		Logger:      logger.Named("http"),
	})

	return &relay{hub: hub, handler: handler}
}

// runServer starts the HTTP server, and the ngrok tunnel if enabled, until a
// signal arrives or one of them fails.
func runServer(ctx context.Context, cmd *cli.Command) error {
	logger := loggerFrom(ctx)
	defer logger.Sync()

	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	r := newRelay(cfg, localURL(cfg.Host, cfg.Port), logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      r.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting "+AppName,
			zap.String("version", Version),
			zap.String("addr", addr),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
			zap.String("rest", fmt.Sprintf("http://%s/api", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(ctx, cfg.Ngrok, r.handler, logger.Named("ngrok"))
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(httpServer.Shutdown(shutdownCtx), "http shutdown")
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done. A tunnel
// that cannot be established is logged and otherwise ignored.
func serveNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger *zap.Logger) {
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", zap.String("domain", cfg.Domain))
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("websocket", strings.Replace(ngrokURL, "https://", "wss://", 1)+"/ws"))

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCP serves the MCP tools over stdio. Without --api-url it reuses a
// relay already listening on the configured port, or starts an internal one on
// a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger := loggerFrom(ctx)
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		cfg, err := configFromCommand(cmd)
		if err != nil {
			return err
		}

		external := localURL(cfg.Host, cfg.Port)
		if relayAvailable(ctx, external) {
			logger.Info("using external relay", zap.String("url", external))
			baseURL = external
		} else {
			internal, shutdown, err := startInternalRelay(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown()
			logger.Info("started internal relay", zap.String("url", internal))
			baseURL = internal
		}
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	return errors.Wrap(server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()), "mcp stdio server")
}

// relayAvailable reports whether a relay answers its health check at baseURL
func relayAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalRelay serves a relay on a random loopback port and returns its URL
func startInternalRelay(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, errors.Wrap(err, "listen on loopback")
	}

	baseURL := "http://" + listener.Addr().String()
	r := newRelay(cfg, baseURL, logger)

	ctx, cancel := context.WithCancel(ctx)
	go r.hub.Run(ctx)

	httpServer := &http.Server{Handler: r.handler}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal relay failed", zap.Error(err))
		}
	}()

	shutdown := func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}
	return baseURL, shutdown, nil
}

// localURL returns the URL at which this process reaches a server bound to host:port
func localURL(host string, port int) string {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

type loggerKey struct{}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func withLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
