// Package metrics holds the Prometheus collectors of the order service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "food_market"

// Registry groups every collector the service records to. A nil *Registry is
// valid and records nothing.
type Registry struct {
	OrdersCreated  prometheus.Counter
	Transitions    *prometheus.CounterVec
	Broadcasts     *prometheus.CounterVec
	PublishErrors  prometheus.Counter
	Subscribers    prometheus.Gauge
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewRegistry creates the collectors and registers them on reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Status transition requests by target status and outcome.",
		}, []string{"status", "outcome"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Events handed to subscribers, by result.",
		}, []string{"event", "result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publish_errors_total",
			Help:      "Order events that could not be published.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Currently connected realtime subscribers.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method"}),
		gatherer: reg,
	}

	reg.MustRegister(
		r.OrdersCreated,
		r.Transitions,
		r.Broadcasts,
		r.PublishErrors,
		r.Subscribers,
		r.Requests,
		r.RequestLatency,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Registry) OrderCreated() {
	if r == nil {
		return
	}
	r.OrdersCreated.Inc()
}

func (r *Registry) Transition(status, outcome string) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(status, outcome).Inc()
}

// Delivered records the result of one broadcast.
func (r *Registry) Delivered(event string, delivered, dropped int) {
	if r == nil {
		return
	}
	r.Broadcasts.WithLabelValues(event, "delivered").Add(float64(delivered))
	r.Broadcasts.WithLabelValues(event, "dropped").Add(float64(dropped))
}

func (r *Registry) PublishFailed() {
	if r == nil {
		return
	}
	r.PublishErrors.Inc()
}

func (r *Registry) SubscriberConnected() {
	if r == nil {
		return
	}
	r.Subscribers.Inc()
}

func (r *Registry) SubscriberDisconnected() {
	if r == nil {
		return
	}
	r.Subscribers.Dec()
}

// ObserveRequest records one HTTP request. Path is left out of the labels so
// order ids cannot blow up cardinality.
func (r *Registry) ObserveRequest(method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.RequestLatency.WithLabelValues(method).Observe(float64(elapsed.Milliseconds()))
}
