// Package relay defines core types shared across subsystems.
package relay

// Action values delivered by the content platform's webhook system. The
// platform emits both the legacy lowercase form and the newer
// SCREAMING_SNAKE rule-engine forms.
const (
	ActionCreated          = "created"
	ActionHighlightCreated = "HIGHLIGHT_CREATED"
	ActionLabelAdded       = "LABEL_ADDED"
	ActionPageCreated      = "PAGE_CREATED"
)

// WebhookEvent is the inbound payload, discriminated by Action. Exactly one
// of Highlight, Label, or Page is populated for a recognized action.
type WebhookEvent struct {
	Action    string      `json:"action"`
	Highlight *Highlight  `json:"highlight,omitempty"`
	Label     *LabelEvent `json:"label,omitempty"`
	Page      *Page       `json:"page,omitempty"`
}

// Highlight is a user annotation anchored inside a saved article.
type Highlight struct {
	ID         string  `json:"id"`
	ShortID    string  `json:"shortId,omitempty"`
	ArticleID  string  `json:"articleId,omitempty"`
	Type       string  `json:"type,omitempty"`
	Quote      string  `json:"quote,omitempty"`
	Annotation string  `json:"annotation,omitempty"`
	Labels     []Label `json:"labels,omitempty"`
}

// HighlightTypeNote marks whole-article note highlights, as opposed to
// positional quote highlights.
const HighlightTypeNote = "NOTE"

// LabelEvent carries the labels attached to a page by a LABEL_ADDED event.
type LabelEvent struct {
	PageID string  `json:"pageId"`
	Labels []Label `json:"labels"`
}

// Page is a saved article record as delivered by PAGE_CREATED events.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Slug  string `json:"slug,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Label is a user-visible tag attachable to pages and highlights.
type Label struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Article is the full record fetched back from the content platform when
// the annotation flow needs body text and existing highlights.
type Article struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	Content    string      `json:"content"`
	Labels     []Label     `json:"labels"`
	Highlights []Highlight `json:"highlights"`
}

// HighlightInput is the mutation payload for creating or updating a
// highlight on an article.
type HighlightInput struct {
	ID         string `json:"id"`
	ShortID    string `json:"shortId,omitempty"`
	ArticleID  string `json:"articleId,omitempty"`
	Type       string `json:"type,omitempty"`
	Annotation string `json:"annotation,omitempty"`
}

// Message is one turn of a completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to the completion service.
type CompletionRequest struct {
	Model    string
	Messages []Message
	Settings map[string]any
}

// TokenUsage reports completion-service token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the generated text plus usage metadata.
type CompletionResult struct {
	Text  string
	Usage TokenUsage
}

// Flow identifies which processing pipeline an event belongs to.
type Flow string

// Flow values returned by Classify.
const (
	FlowNone     Flow = "none"
	FlowTag      Flow = "tag"
	FlowAnnotate Flow = "annotate"
)

// Classify maps an event's action onto a processing flow. Unrecognized
// actions map to FlowNone, which callers treat as a benign no-op.
func Classify(event WebhookEvent) Flow {
	switch event.Action {
	case ActionCreated, ActionHighlightCreated:
		return FlowTag
	case ActionLabelAdded, ActionPageCreated:
		return FlowAnnotate
	default:
		return FlowNone
	}
}
