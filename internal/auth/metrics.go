// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for sign-in metrics.
const (
	OutcomeSuccess       = "success"
	OutcomeUnknownUser   = "unknown_user"
	OutcomeWrongPassword = "wrong_password"
	OutcomeError         = "error"
)

// SignInAttempts counts sign-in attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var SignInAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_signin_attempts_total",
		Help: "Total number of sign-in attempts by outcome",
	},
	[]string{"outcome"},
)

// SignUps counts completed sign-ups.
var SignUps = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_signups_total",
		Help: "Total number of accounts created",
	},
)

// PasswordHashDuration observes key derivation time.
var PasswordHashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_password_hash_duration_seconds",
		Help:    "Password key derivation duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SignInAttempts)
	reg.MustRegister(SignUps)
	reg.MustRegister(PasswordHashDuration)
}

func recordSignIn(outcome string) {
	SignInAttempts.WithLabelValues(outcome).Inc()
}

func observeHash(operation string, d time.Duration) {
	PasswordHashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
