// Package tracing provides OpenTelemetry span helpers used across the HTTP
// server and the agentic RAG/retrieval pipelines.
//
// GetTracer returns the process-wide tracer; Middleware wraps an
// http.Handler in a server span per request. cmd/api wires Middleware into
// the handler chain, and the rag and retrieve packages call GetTracer
// directly to open spans around orchestrator iterations and the hybrid
// retrieval pipeline.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
package tracing
