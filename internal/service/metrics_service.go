package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	certDuration    prometheus.Observer
	certTotal       *prometheus.CounterVec
	tokenConfirms   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	certDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "certificate_render_seconds",
		Help:    "Time spent rendering certificate documents",
		Buckets: prometheus.DefBuckets,
	})

	certTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_generated_total",
		Help: "Certificate generation attempts by outcome",
	}, []string{"outcome"})

	tokenConfirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_confirmations_total",
		Help: "Confirmation token outcomes by kind and result",
	}, []string{"kind", "result"})

	registry.MustRegister(requestDuration, requestTotal, certDuration, certTotal, tokenConfirms)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		certDuration:    certDuration,
		certTotal:       certTotal,
		tokenConfirms:   tokenConfirms,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveCertificateRender records a certificate generation attempt.
func (s *MetricsService) ObserveCertificateRender(outcome string, duration time.Duration) {
	s.certDuration.Observe(duration.Seconds())
	s.certTotal.WithLabelValues(outcome).Inc()
}

// ObserveTokenConfirmation records a token confirmation outcome.
func (s *MetricsService) ObserveTokenConfirmation(kind, result string) {
	s.tokenConfirms.WithLabelValues(kind, result).Inc()
}
