package relay

import (
	"context"
	"fmt"
)

// ContentService is the GraphQL operation surface of the content platform.
type ContentService interface {
	CreateLabel(ctx context.Context, label Label) (Label, error)
	AddLabelToHighlight(ctx context.Context, highlightID, labelID string) error
	SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error
	SetHighlightLabelsByObject(ctx context.Context, highlightID string, labels []Label) error
	ArticleBySlug(ctx context.Context, slug string) (Article, error)
	CreateHighlight(ctx context.Context, input HighlightInput) (Highlight, error)
	UpdateHighlight(ctx context.Context, input HighlightInput) (Highlight, error)
}

// Completer generates annotation text from a prompt conversation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// IDGenerator produces correlation identifiers (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Strategy selects how a correlation tag is attached to a highlight.
type Strategy string

// Tag-attachment strategies. The original deployment shipped one handler
// source file per shape; here the shape is configuration.
const (
	StrategyAdd             Strategy = "add"
	StrategyCreateAdd       Strategy = "create-add"
	StrategyCreateSetObject Strategy = "create-set-object"
	StrategyCreateSetIDs    Strategy = "create-set-ids"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAdd, StrategyCreateAdd, StrategyCreateSetObject, StrategyCreateSetIDs:
		return Strategy(s), nil
	case "":
		return StrategyCreateAdd, nil
	default:
		return "", fmt.Errorf("unknown tag strategy %q", s)
	}
}
