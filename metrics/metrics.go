// Package metrics holds the Prometheus collectors of the chess relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "chess_relay"

	reasonLabelName = "reason"
	codeLabelName   = "code"
)

var (
	SessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "number of sessions currently held in the registry",
		})

	ConnectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "number of live websocket connections",
		})

	GamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "sessions that reached two participants",
		})

	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "finished games by terminal reason",
		}, []string{reasonLabelName})

	MovesAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_accepted_total",
			Help:      "moves applied to a session",
		})

	RequestsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "inbound requests rejected with an error reply, by error code",
		}, []string{codeLabelName})

	MessagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "outbound messages dropped because the connection was closed or its queue was full",
		})
)

// Register registers every relay collector with reg. It must be called once per registerer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SessionsOpen,
		ConnectionsOpen,
		GamesStarted,
		GamesFinished,
		MovesAccepted,
		RequestsRejected,
		MessagesDropped,
	)
}
