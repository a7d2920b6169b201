// Package app wires the CPT merge server together and owns its lifecycle.
//
// New builds, in order: OpenTelemetry providers and business metrics, the
// websocket hub, the session store, the exporter, the merge and health
// services, and finally the chi router with its middleware stack:
//
//	RequestID → RealIP → OTel → StructuredLogger → ErrorHandler → SecurityHeaders → CORS → RateLimiter
//
// /metrics is mounted ahead of that group so scrapes are not traced or
// rate limited. The API lives under /api/v1 and the embedded frontend, if
// any, under /.
//
// Start launches the session janitor and the HTTP server. Stop shuts the
// server down, stops the janitor and the hub, flushes telemetry and closes
// the log file; it is safe to call more than once. Run combines both and
// blocks until SIGINT or SIGTERM.
package app
