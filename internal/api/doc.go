// Package api hosts the HTTP server, middleware, and webhook handler.
// Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/webhooks/events for inbound content-platform events.
package api
