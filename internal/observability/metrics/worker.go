package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	itemsExtracted     *prometheus.HistogramVec
	candidatesPerItem  *prometheus.HistogramVec
	searchMethodsTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outfit",
			Subsystem: "worker",
			Name:      "outfit_process_total",
			Help:      "Total processed outfits by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "outfit",
			Subsystem: "worker",
			Name:      "outfit_process_duration_seconds",
			Help:      "Outfit processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "outfit",
			Subsystem: "worker",
			Name:      "outfit_process_in_flight",
			Help:      "Number of in-flight outfit processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "outfit",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between outfit submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	itemsExtracted := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "outfit",
			Subsystem: "pipeline",
			Name:      "items_extracted",
			Help:      "Distribution of extracted items per outfit.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 12},
		},
		[]string{"service"},
	)
	candidatesPerItem := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "outfit",
			Subsystem: "pipeline",
			Name:      "candidates_per_item",
			Help:      "Distribution of fused product candidates per item.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
		[]string{"service"},
	)
	searchMethodsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "outfit",
			Subsystem: "pipeline",
			Name:      "search_methods_total",
			Help:      "Total matched items by search method.",
		},
		[]string{"service", "method"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		itemsExtracted,
		candidatesPerItem,
		searchMethodsTotal,
	)

	return &WorkerMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		queueLag:           queueLag,
		itemsExtracted:     itemsExtracted,
		candidatesPerItem:  candidatesPerItem,
		searchMethodsTotal: searchMethodsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartOutfit() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishOutfit(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveExtraction(service string, itemCount int) {
	m.itemsExtracted.WithLabelValues(service).Observe(float64(itemCount))
}

func (m *WorkerMetrics) ObserveItemMatch(service, method string, candidateCount int) {
	if method == "" {
		method = "unknown"
	}
	m.searchMethodsTotal.WithLabelValues(service, method).Inc()
	m.candidatesPerItem.WithLabelValues(service).Observe(float64(candidateCount))
}
