package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/model"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/service"
	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auctionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	auctionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	auctionTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_transactions_total",
		Help: "Committed commodity transactions by action and resulting state.",
	}, []string{"action", "state"})

	auctionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_transactions_rejected_total",
		Help: "Rejected commodity transactions by action and reason.",
	}, []string{"action", "reason"})

	auctionAuditRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_audit_runs_total",
		Help: "World-state audit passes by result.",
	}, []string{"result"})

	auctionWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_webhook_deliveries_total",
		Help: "Webhook delivery attempts by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		auctionRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		auctionRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// TransactionMetrics records commodity transactions in Prometheus.
// It satisfies service.Recorder.
type TransactionMetrics struct{}

// Committed implements service.Recorder.
func (TransactionMetrics) Committed(action string, state model.State) {
	auctionTransactionsTotal.WithLabelValues(action, string(state)).Inc()
}

// Rejected implements service.Recorder.
func (TransactionMetrics) Rejected(action string, err error) {
	auctionRejectionsTotal.WithLabelValues(action, RejectionReason(err)).Inc()
}

// RejectionReason classifies a transaction error into a low-cardinality label.
func RejectionReason(err error) string {
	var valErr *ledgerstate.ValidationError
	switch {
	case errors.As(err, &valErr):
		return "validation"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, service.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, service.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, service.ErrConflict):
		return "conflict"
	default:
		return "other"
	}
}

// RecordAudit records the result of a world-state audit pass.
func RecordAudit(ok bool) {
	if ok {
		auctionAuditRunsTotal.WithLabelValues("pass").Inc()
	} else {
		auctionAuditRunsTotal.WithLabelValues("fail").Inc()
	}
}

// RecordWebhookDelivery records one webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		auctionWebhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		auctionWebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
