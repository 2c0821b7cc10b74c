package content

import (
	"context"
	"fmt"

	"github.com/JakeFAU/readlater-relay/internal/relay"
)

const createLabelMutation = `
mutation CreateLabel($input: CreateLabelInput!) {
  createLabel(input: $input) {
    label {
      id
      name
      color
      description
    }
  }
}`

// CreateLabel registers a new label and returns it with its assigned id.
func (c *Client) CreateLabel(ctx context.Context, label relay.Label) (relay.Label, error) {
	input := map[string]any{"name": label.Name}
	if label.Color != "" {
		input["color"] = label.Color
	}
	if label.Description != "" {
		input["description"] = label.Description
	}

	var out struct {
		CreateLabel struct {
			Label relay.Label `json:"label"`
		} `json:"createLabel"`
	}
	if err := c.do(ctx, "createLabel", createLabelMutation, map[string]any{"input": input}, &out); err != nil {
		return relay.Label{}, err
	}
	if out.CreateLabel.Label.ID == "" {
		return relay.Label{}, fmt.Errorf("createLabel returned no label id")
	}
	return out.CreateLabel.Label, nil
}

const addLabelToHighlightMutation = `
mutation AddLabelToHighlight($highlightId: ID!, $labelId: ID!) {
  addLabelToHighlight(highlightId: $highlightId, labelId: $labelId) {
    highlight {
      id
    }
  }
}`

// AddLabelToHighlight links an existing label onto a highlight.
func (c *Client) AddLabelToHighlight(ctx context.Context, highlightID, labelID string) error {
	vars := map[string]any{"highlightId": highlightID, "labelId": labelID}
	return c.do(ctx, "addLabelToHighlight", addLabelToHighlightMutation, vars, nil)
}

const setLabelsMutation = `
mutation SetLabels($input: SetLabelsInput!) {
  setLabelsForHighlight(input: $input) {
    labels {
      id
      name
    }
  }
}`

// SetHighlightLabels replaces a highlight's label set by label id list.
func (c *Client) SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	input := map[string]any{"highlightId": highlightID, "labelIds": labelIDs}
	return c.do(ctx, "setLabelsForHighlight", setLabelsMutation, map[string]any{"input": input}, nil)
}

// SetHighlightLabelsByObject replaces a highlight's label set, passing full
// label objects instead of ids.
func (c *Client) SetHighlightLabelsByObject(ctx context.Context, highlightID string, labels []relay.Label) error {
	objs := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		obj := map[string]any{"name": l.Name}
		if l.ID != "" {
			obj["id"] = l.ID
		}
		if l.Color != "" {
			obj["color"] = l.Color
		}
		objs = append(objs, obj)
	}
	input := map[string]any{"highlightId": highlightID, "labels": objs}
	return c.do(ctx, "setLabelsForHighlight", setLabelsMutation, map[string]any{"input": input}, nil)
}

const articleBySlugQuery = `
query ArticleBySlug($username: String!, $slug: String!) {
  article(username: $username, slug: $slug) {
    article {
      id
      title
      slug
      content
      labels {
        id
        name
        color
        description
      }
      highlights {
        id
        shortId
        type
        annotation
      }
    }
  }
}`

// ArticleBySlug fetches full article content and metadata. The platform
// accepts an article id in place of the slug.
func (c *Client) ArticleBySlug(ctx context.Context, slug string) (relay.Article, error) {
	vars := map[string]any{"username": "me", "slug": slug}

	var out struct {
		Article struct {
			Article relay.Article `json:"article"`
		} `json:"article"`
	}
	if err := c.do(ctx, "article", articleBySlugQuery, vars, &out); err != nil {
		return relay.Article{}, err
	}
	if out.Article.Article.ID == "" {
		return relay.Article{}, fmt.Errorf("article %q not found", slug)
	}
	return out.Article.Article, nil
}

const createHighlightMutation = `
mutation CreateHighlight($input: CreateHighlightInput!) {
  createHighlight(input: $input) {
    highlight {
      id
      shortId
      type
      annotation
    }
  }
}`

// CreateHighlight creates a highlight (typically a NOTE) on an article.
func (c *Client) CreateHighlight(ctx context.Context, input relay.HighlightInput) (relay.Highlight, error) {
	vars := map[string]any{"input": map[string]any{
		"id":         input.ID,
		"shortId":    input.ShortID,
		"articleId":  input.ArticleID,
		"type":       input.Type,
		"annotation": input.Annotation,
	}}

	var out struct {
		CreateHighlight struct {
			Highlight relay.Highlight `json:"highlight"`
		} `json:"createHighlight"`
	}
	if err := c.do(ctx, "createHighlight", createHighlightMutation, vars, &out); err != nil {
		return relay.Highlight{}, err
	}
	return out.CreateHighlight.Highlight, nil
}

const updateHighlightMutation = `
mutation UpdateHighlight($input: UpdateHighlightInput!) {
  updateHighlight(input: $input) {
    highlight {
      id
      annotation
    }
  }
}`

// UpdateHighlight replaces the annotation text of an existing highlight.
func (c *Client) UpdateHighlight(ctx context.Context, input relay.HighlightInput) (relay.Highlight, error) {
	vars := map[string]any{"input": map[string]any{
		"highlightId": input.ID,
		"annotation":  input.Annotation,
	}}

	var out struct {
		UpdateHighlight struct {
			Highlight relay.Highlight `json:"highlight"`
		} `json:"updateHighlight"`
	}
	if err := c.do(ctx, "updateHighlight", updateHighlightMutation, vars, &out); err != nil {
		return relay.Highlight{}, err
	}
	return out.UpdateHighlight.Highlight, nil
}
