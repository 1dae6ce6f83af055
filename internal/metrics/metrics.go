// Package metrics exposes the Prometheus collectors for the ledger and the
// HTTP surface, served at /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PointsAwarded counts the total points credited through the ledger.
	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamify_points_awarded_total",
		Help: "Total points credited through the award endpoint.",
	})

	// AwardRequests counts award attempts by outcome.
	AwardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamify_award_requests_total",
		Help: "Award requests by outcome.",
	}, []string{"outcome"})

	// HTTPRequests counts served requests by method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamify_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	// NewsletterSent counts newsletter emails handed to the mail provider.
	NewsletterSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamify_newsletter_emails_sent_total",
		Help: "Newsletter emails successfully handed off for delivery.",
	})

	// WSClients tracks currently connected dashboard websocket clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamify_websocket_clients",
		Help: "Currently connected websocket clients.",
	})
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method string, status int) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
