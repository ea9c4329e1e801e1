// Package metrics exposes the subsystem's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts authentication outcomes per provider kind.
	// outcome is one of "success", "denied", "error".
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "auth_attempts_total",
		Help:      "Authentication attempts by provider kind and outcome.",
	}, []string{"provider", "outcome"})

	// TokensSwept counts bearer tokens removed by the expiry sweeper.
	TokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "bearer_tokens_swept_total",
		Help:      "Expired bearer tokens removed by the periodic sweep.",
	})

	// SessionsTerminated counts session terminations by reason
	// ("logout", "bulk", "backchannel").
	SessionsTerminated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "sessions_terminated_total",
		Help:      "Sessions terminated by reason.",
	}, []string{"reason"})
)

const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)
