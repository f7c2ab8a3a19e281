package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

const (
	editalIngest = "edital_ingest"

	// Upload metrics
	documentUploadsTotal = "document_uploads_total"

	// Pipeline metrics
	pipelineAttemptsTotal = "pipeline_attempts_total"

	// Labels
	uploadResultLabel   = "result"
	attemptOutcomeLabel = "outcome"
)

// Upload results
const (
	UploadCreated      = "created"
	UploadDeduplicated = "deduplicated"
)

// Attempt outcomes
const (
	AttemptCompleted = "completed"
	AttemptRetried   = "retried"
	AttemptFailed    = "failed"
	AttemptSkipped   = "skipped"
)

var documentUploadsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: editalIngest,
		Name:      documentUploadsTotal,
		Help:      "number of document uploads partitioned by dedup result",
	},
	[]string{uploadResultLabel},
)

var pipelineAttemptsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: editalIngest,
		Name:      pipelineAttemptsTotal,
		Help:      "number of extraction pipeline attempts partitioned by outcome",
	},
	[]string{attemptOutcomeLabel},
)

var extractionDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: editalIngest,
		Name:      "extraction_duration_seconds",
		Help:      "wall time of the provider extraction call",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	},
)

func IncreaseDocumentUploadsTotalMetric(result string) {
	documentUploadsTotalMetric.With(prometheus.Labels{uploadResultLabel: result}).Inc()
}

func IncreasePipelineAttemptsTotalMetric(outcome string) {
	pipelineAttemptsTotalMetric.With(prometheus.Labels{attemptOutcomeLabel: outcome}).Inc()
}

func ObserveExtractionDuration(seconds float64) {
	extractionDurationMetric.Observe(seconds)
}

type PrometheusMetricsHandler struct {
}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (h *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(documentUploadsTotalMetric)
	prometheus.MustRegister(pipelineAttemptsTotalMetric)
	prometheus.MustRegister(extractionDurationMetric)
}
