package observability

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "jobintel"

// Recorder collects crawl, detection and alert metrics on its own registry,
// so tests and multiple recorders never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	crawlsTotal     *prometheus.CounterVec
	crawlDuration   *prometheus.HistogramVec
	postingsTotal   *prometheus.CounterVec
	detectionsTotal *prometheus.CounterVec
	alertsTotal     *prometheus.CounterVec
}

// NewRecorder creates a recorder with every metric registered, plus the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.crawlsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "crawls_total",
			Help:      "Company crawls by ATS type and outcome.",
		},
		[]string{"ats_type", "status"},
	)
	r.crawlDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Company crawl duration.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"ats_type"},
	)
	r.postingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "postings_total",
			Help:      "Posting lifecycle changes by kind (new, updated, closed).",
		},
		[]string{"change"},
	)
	r.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ats_detections_total",
			Help:      "ATS detection runs by detected type.",
		},
		[]string{"ats_type"},
	)
	r.alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "alerts_total",
			Help:      "Hiring alerts emitted by type and severity.",
		},
		[]string{"alert_type", "severity"},
	)

	r.registry.MustRegister(
		r.crawlsTotal,
		r.crawlDuration,
		r.postingsTotal,
		r.detectionsTotal,
		r.alertsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CrawlFinished records one company crawl.
func (r *Recorder) CrawlFinished(atsType, status string, d time.Duration) {
	r.crawlsTotal.WithLabelValues(atsType, status).Inc()
	r.crawlDuration.WithLabelValues(atsType).Observe(d.Seconds())
}

// PostingsChanged adds lifecycle counts from one crawl.
func (r *Recorder) PostingsChanged(newPostings, updated, closed int) {
	r.postingsTotal.WithLabelValues("new").Add(float64(newPostings))
	r.postingsTotal.WithLabelValues("updated").Add(float64(updated))
	r.postingsTotal.WithLabelValues("closed").Add(float64(closed))
}

// DetectionFinished records one detection run.
func (r *Recorder) DetectionFinished(atsType string) {
	r.detectionsTotal.WithLabelValues(atsType).Inc()
}

// AlertEmitted records one stored alert.
func (r *Recorder) AlertEmitted(alertType, severity string) {
	r.alertsTotal.WithLabelValues(alertType, severity).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("[METRICS] Serving Prometheus metrics on %s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
