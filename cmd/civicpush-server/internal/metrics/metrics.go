// Package metrics exposes Prometheus metrics for the HTTP API and the
// targeting engine.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coregx/civicpush"
	"github.com/coregx/civicpush/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector registered by the server.
type Metrics struct {
	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	registrations *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	recipients    *prometheus.CounterVec
	abandoned     prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicpush_device_registrations_total",
			Help: "Device token registrations by outcome (created or refreshed).",
		}, []string{"outcome"}),

		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicpush_dispatches_total",
			Help: "Dispatch batches by outcome (completed or unreachable).",
		}, []string{"outcome"}),

		recipients: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicpush_dispatch_recipients_total",
			Help: "Recipients of completed dispatch batches by result.",
		}, []string{"result"}),

		abandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "civicpush_activations_abandoned_total",
			Help: "Push activations abandoned after exhausting retries.",
		}),
	}
}

// Middleware records RED metrics per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route pattern (e.g. /api/v1/devices/{deviceID}) keeps label cardinality bounded.
		routeCtx := chi.RouteContext(r.Context())
		path := r.URL.Path
		if routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		m.httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}

// NotificationService counts engine events and forwards them to next.
type NotificationService struct {
	metrics *Metrics
	next    civicpush.NotificationService
}

// NewNotificationService wraps next. A nil next is treated as a no-op.
func NewNotificationService(m *Metrics, next civicpush.NotificationService) *NotificationService {
	if next == nil {
		next = &civicpush.NoOpNotificationService{}
	}
	return &NotificationService{metrics: m, next: next}
}

// NotifyDeviceRegistered counts the registration.
func (n *NotificationService) NotifyDeviceRegistered(ctx context.Context, device model.DeviceView, created bool) error {
	outcome := "refreshed"
	if created {
		outcome = "created"
	}
	n.metrics.registrations.WithLabelValues(outcome).Inc()
	return n.next.NotifyDeviceRegistered(ctx, device, created)
}

// NotifyDispatchCompleted counts the batch and its recipients.
func (n *NotificationService) NotifyDispatchCompleted(ctx context.Context, result civicpush.DispatchResult) error {
	n.metrics.dispatches.WithLabelValues("completed").Inc()
	n.metrics.recipients.WithLabelValues("succeeded").Add(float64(result.Succeeded))
	n.metrics.recipients.WithLabelValues("failed").Add(float64(result.Failed))
	n.metrics.recipients.WithLabelValues("excluded").Add(float64(result.Considered - result.Included))
	return n.next.NotifyDispatchCompleted(ctx, result)
}

// NotifyDispatchFailed counts the unreachable batch.
func (n *NotificationService) NotifyDispatchFailed(ctx context.Context, plan civicpush.DispatchPlan, err error) error {
	n.metrics.dispatches.WithLabelValues("unreachable").Inc()
	return n.next.NotifyDispatchFailed(ctx, plan, err)
}

// NotifyActivationAbandoned counts the abandoned activation.
func (n *NotificationService) NotifyActivationAbandoned(ctx context.Context, activation model.PushActivation) error {
	n.metrics.abandoned.Inc()
	return n.next.NotifyActivationAbandoned(ctx, activation)
}
