package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/annotate"
	"github.com/JakeFAU/readlater-relay/internal/api"
	"github.com/JakeFAU/readlater-relay/internal/completion"
	"github.com/JakeFAU/readlater-relay/internal/config"
	"github.com/JakeFAU/readlater-relay/internal/content"
	uuidgen "github.com/JakeFAU/readlater-relay/internal/id/uuid"
	"github.com/JakeFAU/readlater-relay/internal/logging"
	"github.com/JakeFAU/readlater-relay/internal/metrics"
	"github.com/JakeFAU/readlater-relay/internal/retry"
	"github.com/JakeFAU/readlater-relay/internal/tagger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "Webhook relay for read-it-later highlight and page events",
		Long: `relay receives highlight, label, and page webhooks from the content
platform, attaches a unique uuid: correlation tag to each new highlight via
the platform's GraphQL API, and can enrich saved articles with an
LLM-generated annotation before tagging.`,
	}

	var cfgPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	serveCmd.Flags().StringVar(&cfgPath, "config", "", "Path to config file")
	root.AddCommand(serveCmd)

	return root
}

func runServe(parent context.Context, cfgPath string) error {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	contentClient := content.New(content.Config{
		Endpoint: cfg.Content.Endpoint,
		APIKey:   cfg.Content.APIKey,
		Timeout:  cfg.ContentTimeout(),
	}, logging.Component(logger, "content"))

	completer := completion.New(completion.Config{
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
		Model:   cfg.Completion.Model,
		Timeout: cfg.CompletionTimeout(),
	}, logging.Component(logger, "completion"))

	idGen := uuidgen.New()
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
	}

	tg := tagger.New(contentClient, idGen, nil, tagger.Config{
		Strategy: cfg.Strategy(),
		Retry:    policy,
	}, logging.Component(logger, "tagger"))

	annotator := annotate.New(contentClient, completer, tg, idGen, nil, annotate.Config{
		TriggerLabel:     cfg.Annotate.TriggerLabel,
		MinContentLength: cfg.Annotate.MinContentLength,
		Prompt:           cfg.Annotate.Prompt,
		Model:            cfg.Annotate.Model,
		Retry:            policy,
	}, logging.Component(logger, "annotate"))

	apiServer := api.NewServer(tg, annotator, cfg, logging.Component(logger, "api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
