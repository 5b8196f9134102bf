package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements ports.Metrics with Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	payments       *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
	ledgerFailures prometheus.Counter
	tasks          *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates a Recorder on its own registry, with Go and process collectors attached.
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Charge attempts by normalized processor outcome.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		ledgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_write_failures_total",
			Help:      "Ledger inserts that failed after the processor confirmed a charge.",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Background tasks processed by type and result.",
		}, []string{"task_type", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		r.payments, r.webhooks, r.ledgerFailures, r.tasks,
		r.httpRequests, r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObservePayment(outcome string) {
	r.payments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveWebhook(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	r.webhooks.WithLabelValues(eventType, outcome).Inc()
}

func (r *Recorder) IncLedgerWriteFailure() {
	r.ledgerFailures.Inc()
}

func (r *Recorder) ObserveTask(taskType, result string) {
	r.tasks.WithLabelValues(taskType, result).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (r *Recorder) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if route == "" {
		route = "unknown"
	}
	r.httpRequests.WithLabelValues(method, route, status).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(float64(elapsed) / float64(time.Millisecond))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObservePayment(string)         {}
func (Nop) ObserveWebhook(string, string) {}
func (Nop) IncLedgerWriteFailure()        {}
func (Nop) ObserveTask(string, string)    {}
