package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// milliseconds
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
	}

	batchBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "toxguard_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"route", "method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toxguard_request_latency_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"route"},
	)

	InferenceLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toxguard_inference_latency_ms",
			Help:    "Classifier latency per batch in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"backend"},
	)

	BatchSize = promauto.With(registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toxguard_batch_size",
			Help:    "Number of comments per predict request",
			Buckets: batchBuckets,
		},
	)

	Predictions = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "toxguard_predictions_total",
			Help: "Classified comments by severity",
		},
		[]string{"severity"},
	)

	RateLimitRejections = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "toxguard_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	AuthFailures = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "toxguard_auth_failures_total",
			Help: "Requests rejected for a missing or invalid API key",
		},
	)

	ModelLoaded = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "toxguard_model_loaded",
			Help: "1 once the model and tokenizer are loaded",
		},
	)
)

var initOnce sync.Once

func Initialize() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
