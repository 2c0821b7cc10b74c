package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/annotate"
	"github.com/JakeFAU/readlater-relay/internal/config"
	"github.com/JakeFAU/readlater-relay/internal/metrics"
	"github.com/JakeFAU/readlater-relay/internal/relay"
	"github.com/JakeFAU/readlater-relay/internal/tagger"
)

// Server wires HTTP handlers to the tagging and annotation workflows.
type Server struct {
	router    chi.Router
	tagger    *tagger.Tagger
	annotator *annotate.Annotator
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	tg *tagger.Tagger,
	annotator *annotate.Annotator,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tagger:    tg,
		annotator: annotator,
		cfg:       cfg,
		logger:    logger,
	}

	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(timeout))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/events", s.handleWebhook)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Downstreams are remote SaaS endpoints; the relay itself is always ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleWebhook is the single inbound endpoint. Every failure resolves to
// a response here; nothing propagates past the handler boundary.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event relay.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		metrics.ObserveEvent("unknown", "parse_error")
		s.logger.Error("webhook payload parse failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("invalid webhook payload: %v", err))
		return
	}

	s.logger.Info("webhook received", zap.String("action", event.Action))

	switch relay.Classify(event) {
	case relay.FlowTag:
		s.handleTagFlow(r.Context(), w, event)
	case relay.FlowAnnotate:
		s.handleAnnotateFlow(r.Context(), w, event)
	default:
		metrics.ObserveEvent(event.Action, "noop")
		writeMessage(w, fmt.Sprintf("no action taken for action %q", event.Action))
	}
}

func (s *Server) handleTagFlow(ctx context.Context, w http.ResponseWriter, event relay.WebhookEvent) {
	if event.Highlight == nil || event.Highlight.ID == "" {
		// A missing target is not an error: deliveries are repeatable and
		// sometimes partial.
		metrics.ObserveEvent(event.Action, "noop")
		writeMessage(w, "no highlight in payload, nothing to do")
		return
	}
	if s.cfg.Content.APIKey == "" {
		metrics.ObserveEvent(event.Action, "config_error")
		s.logger.Error("content service credential not configured")
		writeError(w, http.StatusInternalServerError, "content service credential not configured")
		return
	}

	tag, err := s.tagger.Attach(ctx, *event.Highlight)
	if err != nil {
		metrics.ObserveEvent(event.Action, "error")
		s.logger.Error("tag attachment failed",
			zap.String("highlight_id", event.Highlight.ID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.ObserveEvent(event.Action, "tagged")
	writeMessage(w, fmt.Sprintf("attached %s to highlight %s", tag, event.Highlight.ID))
}

func (s *Server) handleAnnotateFlow(ctx context.Context, w http.ResponseWriter, event relay.WebhookEvent) {
	if !s.cfg.Annotate.Enabled {
		metrics.ObserveEvent(event.Action, "noop")
		writeMessage(w, "annotation disabled, no action taken")
		return
	}

	articleID, eventLabels := annotateTarget(event)
	if articleID == "" {
		metrics.ObserveEvent(event.Action, "noop")
		writeMessage(w, "no article in payload, nothing to do")
		return
	}
	if s.cfg.Content.APIKey == "" {
		metrics.ObserveEvent(event.Action, "config_error")
		s.logger.Error("content service credential not configured")
		writeError(w, http.StatusInternalServerError, "content service credential not configured")
		return
	}

	result, err := s.annotator.Annotate(ctx, articleID, eventLabels)
	if err != nil {
		metrics.ObserveEvent(event.Action, "error")
		s.logger.Error("annotation failed",
			zap.String("article_id", articleID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Skipped {
		metrics.ObserveEvent(event.Action, "noop")
		writeMessage(w, result.Message)
		return
	}

	metrics.ObserveEvent(event.Action, "annotated")
	writeMessage(w, result.Message)
}

func annotateTarget(event relay.WebhookEvent) (string, []relay.Label) {
	switch {
	case event.Label != nil && event.Label.PageID != "":
		return event.Label.PageID, event.Label.Labels
	case event.Page != nil && event.Page.ID != "":
		return event.Page.ID, nil
	default:
		return "", nil
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Header only: a query-string key would end up in access logs.
			if r.Header.Get("X-API-Key") != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
