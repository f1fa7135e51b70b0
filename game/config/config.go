package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8765
	DefaultStaticDir      = "static"
	DefaultSendQueueSize  = 64
	DefaultMaxMessageSize = 4096
)

// Config holds the server settings assembled from flags and environment
type Config struct {
	Host string
	Port int

	// StaticDir is served at / for a browser client. Clients must read game_state
	// turn as a role name ("white"/"black"); bundles that expect a boolean turn
	// show the wrong side to move.
	StaticDir string

	// SendQueueSize bounds the outbound queue of each connection
	SendQueueSize int
	// MaxMessageSize is the largest inbound frame accepted, in bytes
	MaxMessageSize int64
	// AllowedOrigins restricts websocket upgrades; empty accepts any origin
	AllowedOrigins []string

	Debug bool
	Ngrok NgrokConfig
}

// NgrokConfig configures the optional public tunnel
type NgrokConfig struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		StaticDir:      DefaultStaticDir,
		SendQueueSize:  DefaultSendQueueSize,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Wrapf(ErrInvalidConfig, "port %d out of range", c.Port)
	}
	if c.SendQueueSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "send queue size must be positive, got %d", c.SendQueueSize)
	}
	if c.MaxMessageSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "max message size must be positive, got %d", c.MaxMessageSize)
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		return errors.Wrap(ErrInvalidConfig, "ngrok is enabled but no auth token is set")
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// OriginAllowed reports whether a websocket upgrade from origin is accepted.
// Requests without an Origin header come from non-browser clients and are always allowed.
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ParseOrigins splits a comma separated origin list, dropping blanks
func ParseOrigins(values ...string) []string {
	var origins []string
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}
