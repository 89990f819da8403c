// Package observe provides logging, metrics and tracing for the postboard core.
//
// It is a pure instrumentation library: the cache layer, the rate limiters and
// the HTTP server receive an Observer (or the pieces built from it) and report
// what they do. Nothing in this package performs I/O beyond exporter setup and
// writing log lines.
//
// Logging is backed by zerolog. Metrics and spans go through OpenTelemetry and
// can be exported to stdout, OTLP or a Prometheus registry served by the server.
package observe
