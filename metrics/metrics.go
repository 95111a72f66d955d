// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the store connection and the messaging service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heartline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// DBConnectAttempts counts lazy connection attempts by result.
	DBConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartline_db_connect_attempts_total",
			Help: "MongoDB connection attempts",
		},
		[]string{"result"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartline_messages_sent_total",
			Help: "Messages appended to conversations",
		},
		[]string{"type"},
	)

	// ProjectionUpdates counts last-message projection writes by outcome:
	// applied, stale (a newer message already won) or failed.
	ProjectionUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heartline_conversation_projection_updates_total",
			Help: "Conversation last-message projection updates",
		},
		[]string{"outcome"},
	)
)
