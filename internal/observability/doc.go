// Package observability carries the metrics, logging and tracing shared by
// the crawler, the ingestion pipeline and the conversation engine.
//
// # Metrics
//
// Metrics are Prometheus collectors registered on a caller-supplied
// Registerer so tests can use an isolated registry. A nil *Metrics is valid
// and records nothing:
//
//	reg := prometheus.NewRegistry()
//	m := observability.NewMetrics(reg)
//	m.PageCrawled()
//	m.ObserveRetrieval(time.Since(start))
//
// # Logging
//
// NewLogger returns a *slog.Logger whose handler redacts API keys, bot
// tokens and JWTs from messages and string attributes before they are
// written.
//
// # Tracing
//
// NewTracer exports spans over OTLP/gRPC when an endpoint is configured and
// falls back to a no-op tracer otherwise.
package observability
