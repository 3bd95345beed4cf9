// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route pattern matched.
const unmatchedRoute = "unmatched"

// HTTPRequests counts API requests by route pattern and status code.
// Use RegisterMetrics to register this with a Prometheus registry.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_http_requests_total",
		Help: "Total number of API requests by route and status",
	},
	[]string{"route", "status"},
)

// HTTPRequestDuration observes API request latency by route pattern.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_http_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

// AuthorizationRejections counts requests stopped by the authorization
// chain, by the step that stopped them.
var AuthorizationRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_authorization_rejections_total",
		Help: "Total number of requests rejected by the authorization chain",
	},
	[]string{"step"},
)

// RegisterMetrics registers web package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPRequestDuration)
	reg.MustRegister(AuthorizationRejections)
}

func observeRequest(route string, status int, d time.Duration) {
	if route == "" {
		route = unmatchedRoute
	}
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
