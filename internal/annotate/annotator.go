// Package annotate implements the LLM annotation flow: fetch the article,
// generate a note, write it back, and tag it.
package annotate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/metrics"
	"github.com/JakeFAU/readlater-relay/internal/relay"
	"github.com/JakeFAU/readlater-relay/internal/retry"
	"github.com/JakeFAU/readlater-relay/internal/tagger"
)

// DefaultPrompt is used when neither a label description nor a configured
// prompt override is available.
const DefaultPrompt = "Summarize the following article in a short paragraph. " +
	"Focus on the key claims and takeaways, and keep the original tone."

// ErrContentTooShort marks articles below the minimum-length threshold.
// There is nothing to summarize, and the invocation aborts.
var ErrContentTooShort = errors.New("article content too short, nothing to summarize")

// Config controls Annotator behavior.
type Config struct {
	TriggerLabel     string
	MinContentLength int
	Prompt           string
	Model            string
	Retry            retry.Policy
}

// Result reports what the annotation flow did.
type Result struct {
	Skipped bool
	Message string
	Tag     string
}

// Annotator runs the annotation flow end to end. There is no
// partial-success path: any step failure aborts the invocation.
type Annotator struct {
	content   relay.ContentService
	completer relay.Completer
	tagger    *tagger.Tagger
	idGen     relay.IDGenerator
	sleep     retry.Sleeper
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Annotator. A nil sleep uses the real backoff clock.
func New(
	content relay.ContentService,
	completer relay.Completer,
	tg *tagger.Tagger,
	idGen relay.IDGenerator,
	sleep retry.Sleeper,
	cfg Config,
	logger *zap.Logger,
) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	if cfg.MinContentLength == 0 {
		cfg.MinContentLength = 280
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Annotator{
		content:   content,
		completer: completer,
		tagger:    tg,
		idGen:     idGen,
		sleep:     sleep,
		cfg:       cfg,
		logger:    logger,
	}
}

// Annotate processes a LABEL_ADDED or PAGE_CREATED event for the given
// article id. The event supplies the labels used for trigger filtering.
func (a *Annotator) Annotate(ctx context.Context, articleID string, eventLabels []relay.Label) (Result, error) {
	if a.cfg.TriggerLabel != "" && len(eventLabels) > 0 && !hasLabel(eventLabels, a.cfg.TriggerLabel) {
		a.logger.Info("trigger label absent, skipping annotation",
			zap.String("article_id", articleID),
			zap.String("trigger_label", a.cfg.TriggerLabel),
		)
		return Result{Skipped: true, Message: "trigger label not present, no action taken"}, nil
	}

	article, err := a.content.ArticleBySlug(ctx, articleID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch article: %w", err)
	}
	if len(article.Content) < a.cfg.MinContentLength {
		return Result{}, fmt.Errorf("%w: %d chars", ErrContentTooShort, len(article.Content))
	}

	prompt := a.resolvePrompt(article)
	a.logger.Info("generating annotation",
		zap.String("article_id", article.ID),
		zap.String("title", article.Title),
		zap.Int("content_length", len(article.Content)),
	)

	completion, err := a.completer.Complete(ctx, relay.CompletionRequest{
		Model: a.cfg.Model,
		Messages: []relay.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\n%s", article.Title, article.Content)},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate annotation: %w", err)
	}

	note, err := a.upsertNote(ctx, article, completion.Text)
	if err != nil {
		return Result{}, err
	}

	tag, err := a.tagger.Attach(ctx, note)
	if err != nil {
		return Result{}, fmt.Errorf("tag note: %w", err)
	}

	return Result{
		Message: fmt.Sprintf("annotated article %s, tagged note %s with %s", article.ID, note.ID, tag),
		Tag:     tag,
	}, nil
}

// resolvePrompt picks the prompt source: per-article trigger label
// description first, then the configured override, then the default.
func (a *Annotator) resolvePrompt(article relay.Article) string {
	if a.cfg.TriggerLabel != "" {
		for _, l := range article.Labels {
			if l.Name == a.cfg.TriggerLabel && l.Description != "" {
				return l.Description
			}
		}
	}
	if a.cfg.Prompt != "" {
		return a.cfg.Prompt
	}
	return DefaultPrompt
}

// upsertNote updates the article's existing note highlight, or creates one
// when none exists. Both mutations run inside the retry loop.
func (a *Annotator) upsertNote(ctx context.Context, article relay.Article, text string) (relay.Highlight, error) {
	for _, h := range article.Highlights {
		if h.Type == relay.HighlightTypeNote {
			return a.updateNote(ctx, h, text)
		}
	}
	return a.createNote(ctx, article, text)
}

func (a *Annotator) updateNote(ctx context.Context, note relay.Highlight, text string) (relay.Highlight, error) {
	var updated relay.Highlight
	err := a.mutate(ctx, "updateHighlight", func(ctx context.Context) error {
		h, err := a.content.UpdateHighlight(ctx, relay.HighlightInput{ID: note.ID, Annotation: text})
		if err != nil {
			return err
		}
		updated = h
		return nil
	})
	if err != nil {
		return relay.Highlight{}, fmt.Errorf("update note: %w", err)
	}
	if updated.ID == "" {
		updated = note
	}
	updated.Annotation = text
	return updated, nil
}

func (a *Annotator) createNote(ctx context.Context, article relay.Article, text string) (relay.Highlight, error) {
	id, err := a.idGen.NewID()
	if err != nil {
		return relay.Highlight{}, fmt.Errorf("generate note id: %w", err)
	}
	shortID, err := a.idGen.NewID()
	if err != nil {
		return relay.Highlight{}, fmt.Errorf("generate note short id: %w", err)
	}

	input := relay.HighlightInput{
		ID:         id,
		ShortID:    shortID[:8],
		ArticleID:  article.ID,
		Type:       relay.HighlightTypeNote,
		Annotation: text,
	}
	var created relay.Highlight
	err = a.mutate(ctx, "createHighlight", func(ctx context.Context) error {
		h, err := a.content.CreateHighlight(ctx, input)
		if err != nil {
			return err
		}
		created = h
		return nil
	})
	if err != nil {
		return relay.Highlight{}, fmt.Errorf("create note: %w", err)
	}
	if created.ID == "" {
		created = relay.Highlight{ID: id, ShortID: input.ShortID, Type: relay.HighlightTypeNote}
	}
	created.Annotation = text
	return created, nil
}

func (a *Annotator) mutate(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	err := retry.Do(ctx, a.cfg.Retry, a.sleep, func(ctx context.Context) error {
		if opErr := op(ctx); opErr != nil {
			a.logger.Warn("remote mutation attempt failed",
				zap.String("operation", operation),
				zap.Error(opErr),
			)
			return opErr
		}
		return nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		metrics.ObserveRetryExhausted(operation)
	}
	return err
}

func hasLabel(labels []relay.Label, name string) bool {
	for _, l := range labels {
		if l.Name == name {
			return true
		}
	}
	return false
}
