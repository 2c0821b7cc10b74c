// Package tagger implements the correlation tag attachment workflow.
package tagger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/metrics"
	"github.com/JakeFAU/readlater-relay/internal/relay"
	"github.com/JakeFAU/readlater-relay/internal/retry"
)

// TagPrefix marks labels generated by this pipeline.
const TagPrefix = "uuid:"

// labelColor is the color assigned to generated labels; the platform
// requires one even for machine-only markers.
const labelColor = "#D7BDE2"

// Config controls Tagger behavior.
type Config struct {
	Strategy relay.Strategy
	Retry    retry.Policy
}

// Tagger attaches a fresh correlation tag to a highlight using the
// configured attachment strategy. Every mutating call is wrapped in the
// bounded retry loop.
type Tagger struct {
	content relay.ContentService
	idGen   relay.IDGenerator
	sleep   retry.Sleeper
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Tagger. A nil sleep uses the real backoff clock.
func New(content relay.ContentService, idGen relay.IDGenerator, sleep retry.Sleeper, cfg Config, logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	if cfg.Strategy == "" {
		cfg.Strategy = relay.StrategyCreateAdd
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Tagger{
		content: content,
		idGen:   idGen,
		sleep:   sleep,
		cfg:     cfg,
		logger:  logger,
	}
}

// NewTag generates a fresh correlation tag name.
func (t *Tagger) NewTag() (string, error) {
	id, err := t.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate correlation id: %w", err)
	}
	return TagPrefix + id, nil
}

// Attach generates a correlation tag and attaches it to the highlight,
// returning the tag name. The highlight's existing labels, when known, are
// preserved by the set-based strategies.
func (t *Tagger) Attach(ctx context.Context, highlight relay.Highlight) (string, error) {
	tag, err := t.NewTag()
	if err != nil {
		return "", err
	}
	t.logger.Info("attaching correlation tag",
		zap.String("highlight_id", highlight.ID),
		zap.String("tag", tag),
		zap.String("strategy", string(t.cfg.Strategy)),
	)

	switch t.cfg.Strategy {
	case relay.StrategyAdd:
		err = t.setDirectly(ctx, highlight, tag)
	case relay.StrategyCreateAdd:
		err = t.createThenAdd(ctx, highlight, tag)
	case relay.StrategyCreateSetObject:
		err = t.createThenSetByObject(ctx, highlight, tag)
	case relay.StrategyCreateSetIDs:
		err = t.createThenSetByIDs(ctx, highlight, tag)
	default:
		return "", fmt.Errorf("unknown tag strategy %q", t.cfg.Strategy)
	}
	if err != nil {
		return "", err
	}

	t.logger.Info("correlation tag attached",
		zap.String("highlight_id", highlight.ID),
		zap.String("tag", tag),
	)
	return tag, nil
}

// setDirectly replaces the highlight's label set in a single call,
// carrying the new tag as a label object the platform creates on the fly.
func (t *Tagger) setDirectly(ctx context.Context, highlight relay.Highlight, tag string) error {
	labels := append(cloneLabels(highlight.Labels), relay.Label{Name: tag, Color: labelColor})
	return t.mutate(ctx, "setLabelsForHighlight", func(ctx context.Context) error {
		return t.content.SetHighlightLabelsByObject(ctx, highlight.ID, labels)
	})
}

// createThenAdd creates the label, then links it by id. A label created
// but never linked is left behind in the remote service; the tag in the
// logs is enough to find it.
func (t *Tagger) createThenAdd(ctx context.Context, highlight relay.Highlight, tag string) error {
	label, err := t.createLabel(ctx, tag)
	if err != nil {
		return err
	}
	return t.mutate(ctx, "addLabelToHighlight", func(ctx context.Context) error {
		return t.content.AddLabelToHighlight(ctx, highlight.ID, label.ID)
	})
}

func (t *Tagger) createThenSetByObject(ctx context.Context, highlight relay.Highlight, tag string) error {
	label, err := t.createLabel(ctx, tag)
	if err != nil {
		return err
	}
	labels := append(cloneLabels(highlight.Labels), label)
	return t.mutate(ctx, "setLabelsForHighlight", func(ctx context.Context) error {
		return t.content.SetHighlightLabelsByObject(ctx, highlight.ID, labels)
	})
}

func (t *Tagger) createThenSetByIDs(ctx context.Context, highlight relay.Highlight, tag string) error {
	label, err := t.createLabel(ctx, tag)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(highlight.Labels)+1)
	for _, l := range highlight.Labels {
		if l.ID != "" {
			ids = append(ids, l.ID)
		}
	}
	ids = append(ids, label.ID)
	return t.mutate(ctx, "setLabelsForHighlight", func(ctx context.Context) error {
		return t.content.SetHighlightLabels(ctx, highlight.ID, ids)
	})
}

func (t *Tagger) createLabel(ctx context.Context, tag string) (relay.Label, error) {
	var label relay.Label
	err := t.mutate(ctx, "createLabel", func(ctx context.Context) error {
		created, err := t.content.CreateLabel(ctx, relay.Label{Name: tag, Color: labelColor})
		if err != nil {
			return err
		}
		label = created
		return nil
	})
	if err != nil {
		return relay.Label{}, err
	}
	return label, nil
}

func (t *Tagger) mutate(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	err := retry.Do(ctx, t.cfg.Retry, t.sleep, func(ctx context.Context) error {
		if opErr := op(ctx); opErr != nil {
			t.logger.Warn("remote mutation attempt failed",
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

func cloneLabels(src []relay.Label) []relay.Label {
	if len(src) == 0 {
		return nil
	}
	dst := make([]relay.Label, len(src))
	copy(dst, src)
	return dst
}
