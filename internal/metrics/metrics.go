package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Registration attempts by outcome.",
	}, []string{"outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_refreshes_total",
		Help: "Refresh-token exchanges by outcome.",
	}, []string{"outcome"})

	InviteConsumeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_invite_consume_conflicts_total",
		Help: "Registrations that lost the race on an invitation token.",
	})
)
