// Package observe provides the logging, metrics, and tracing glue for
// the data-access layer: a zerolog-backed structured logger, OpenTelemetry
// instruments for query execution and cache activity, and an Observer
// that wires exporters together at the composition root.
package observe
