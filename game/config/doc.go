// Package config provides the server configuration of the chess relay.
//
// The config package handles:
//   - Default values for every server setting
//   - Validation before the server starts
//   - Origin filtering for websocket upgrades
//
// Sources:
//
// The root command builds a Config from command-line flags, each of which can
// also be set through an environment variable (PORT, HOST, STATIC_DIR,
// SEND_QUEUE_SIZE, ALLOWED_ORIGINS, DEBUG, NGROK_ENABLED, NGROK_AUTHTOKEN,
// NGROK_DOMAIN). A .env file in the working directory is loaded first.
//
// Usage:
//
//	cfg := config.Default()
//	cfg.Port = 9000
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(cfg.Addr(), handler)
package config
