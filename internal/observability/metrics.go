package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sitechat Prometheus collectors.
//
// All methods are safe on a nil receiver so components can take an optional
// *Metrics without guarding every call.
type Metrics struct {
	// PagesCrawled counts pages fetched successfully by the crawler.
	PagesCrawled prometheus.Counter

	// CrawlErrors counts pages the crawler failed to fetch or parse.
	CrawlErrors prometheus.Counter

	// DocumentsIngested counts documents that produced text.
	// Labels: format (html|text|pdf)
	DocumentsIngested *prometheus.CounterVec

	// IngestErrors counts failures while building the knowledge base.
	// Labels: stage (crawl|extract|embed|index)
	IngestErrors *prometheus.CounterVec

	// ChunksIndexed is the number of chunks in the live index.
	ChunksIndexed prometheus.Gauge

	// RetrievalDuration measures knowledge base queries in seconds.
	RetrievalDuration prometheus.Histogram

	// GenerationDuration measures model calls in seconds.
	// Labels: provider
	GenerationDuration *prometheus.HistogramVec

	// GenerationErrors counts failed model calls.
	// Labels: provider, reason
	GenerationErrors *prometheus.CounterVec

	// Messages counts handled chat messages.
	// Labels: channel (telegram|console), kind (start|reset|query)
	Messages *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// registers on prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		PagesCrawled: f.NewCounter(prometheus.CounterOpts{
			Name: "sitechat_pages_crawled_total",
			Help: "Pages fetched by the website crawler",
		}),
		CrawlErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "sitechat_crawl_errors_total",
			Help: "Pages the crawler could not fetch or parse",
		}),
		DocumentsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitechat_documents_ingested_total",
			Help: "Documents that contributed text to the knowledge base",
		}, []string{"format"}),
		IngestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitechat_ingest_errors_total",
			Help: "Failures while building the knowledge base",
		}, []string{"stage"}),
		ChunksIndexed: f.NewGauge(prometheus.GaugeOpts{
			Name: "sitechat_chunks_indexed",
			Help: "Chunks held by the vector index",
		}),
		RetrievalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitechat_retrieval_duration_seconds",
			Help:    "Knowledge base query latency",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		GenerationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitechat_generation_duration_seconds",
			Help:    "Model generation latency",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		GenerationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitechat_generation_errors_total",
			Help: "Failed model generations",
		}, []string{"provider", "reason"}),
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitechat_messages_total",
			Help: "Chat messages handled",
		}, []string{"channel", "kind"}),
	}
}

// PageCrawled records a successfully fetched page.
func (m *Metrics) PageCrawled() {
	if m == nil {
		return
	}
	m.PagesCrawled.Inc()
}

// CrawlError records a page that could not be fetched.
func (m *Metrics) CrawlError() {
	if m == nil {
		return
	}
	m.CrawlErrors.Inc()
}

// DocumentIngested records a document that produced text.
func (m *Metrics) DocumentIngested(format string) {
	if m == nil {
		return
	}
	m.DocumentsIngested.WithLabelValues(format).Inc()
}

// IngestError records an ingestion failure at the given stage.
func (m *Metrics) IngestError(stage string) {
	if m == nil {
		return
	}
	m.IngestErrors.WithLabelValues(stage).Inc()
}

// SetChunksIndexed sets the size of the live index.
func (m *Metrics) SetChunksIndexed(n int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Set(float64(n))
}

// ObserveRetrieval records the latency of a knowledge base query.
func (m *Metrics) ObserveRetrieval(d time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(d.Seconds())
}

// ObserveGeneration records the latency of a model call.
func (m *Metrics) ObserveGeneration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// GenerationError records a failed model call.
func (m *Metrics) GenerationError(provider, reason string) {
	if m == nil {
		return
	}
	m.GenerationErrors.WithLabelValues(provider, reason).Inc()
}

// MessageHandled records a chat message of the given kind.
func (m *Metrics) MessageHandled(channel, kind string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(channel, kind).Inc()
}
