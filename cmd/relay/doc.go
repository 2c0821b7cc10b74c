// Package main hosts the webhook relay service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and the single webhook endpoint. Each inbound event is
//     classified by action and resolved to a terminal HTTP response; no failure propagates past the handler.
//   - Tagging pipeline: internal/tagger generates a fresh uuid:<v4> correlation tag per invocation and attaches it to
//     the target highlight through the configured attachment strategy. Every mutating call runs inside the bounded
//     retry loop (internal/retry): up to 3 attempts with linear 2s/4s backoff by default.
//   - Annotation pipeline: internal/annotate fetches the target article, generates note text through the completion
//     service, writes the note back as a NOTE highlight (create-or-update), and tags the note. Any step failure aborts
//     the whole invocation; there is no partial-success path.
//   - Remote surface: internal/content speaks the content platform's GraphQL wire protocol; a populated errors list in
//     the response envelope counts as a failed attempt even on HTTP 200.
//   - Configuration & plumbing: godotenv preloads .env, Viper populates config from file/env (prefix RELAY_); zap
//     provides structured logging; Prometheus metrics are exported via middleware and the /metrics handler. The
//     service keeps no local state: every invocation is independent and safely repeatable.
//
// Operational notes:
//   - Concurrency model: one logical thread of control per invocation; outbound calls are sequential. Shutdown is
//     coordinated via context cancellation from main into the HTTP server.
//   - Credentials: the content api key is sent verbatim in the Authorization header. A missing key fails each
//     invocation with a 500 before any outbound call, rather than failing startup.
//   - Observability: zap logs carry the action, highlight/article ids, and the generated tag at key transitions;
//     Prometheus counters track events, remote calls, retry exhaustion, and completion token usage.
//
// Quick checklist:
//   - Configure env vars: RELAY_SERVER_PORT, RELAY_CONTENT_API_KEY, RELAY_CONTENT_TAG_STRATEGY,
//     RELAY_ANNOTATE_ENABLED, RELAY_COMPLETION_API_KEY when annotation is on.
//   - Run locally: go run ./cmd/relay serve --config config.yaml (or rely solely on env overrides).
package main
