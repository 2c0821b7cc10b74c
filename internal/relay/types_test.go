package relay

import (
	"encoding/json"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action string
		want   Flow
	}{
		{ActionCreated, FlowTag},
		{ActionHighlightCreated, FlowTag},
		{ActionLabelAdded, FlowAnnotate},
		{ActionPageCreated, FlowAnnotate},
		{"updated", FlowNone},
		{"deleted", FlowNone},
		{"", FlowNone},
	}

	for _, tt := range tests {
		if got := Classify(WebhookEvent{Action: tt.action}); got != tt.want {
			t.Fatalf("Classify(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestWebhookEventDecoding(t *testing.T) {
	t.Parallel()

	var event WebhookEvent
	body := `{
		"action": "LABEL_ADDED",
		"label": {
			"pageId": "page-1",
			"labels": [{"id": "l1", "name": "summarize", "description": "Short prompt"}]
		}
	}`
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Highlight != nil || event.Page != nil {
		t.Fatalf("expected only label payload populated: %+v", event)
	}
	if event.Label == nil || event.Label.PageID != "page-1" {
		t.Fatalf("expected label payload with page id, got %+v", event.Label)
	}
	if len(event.Label.Labels) != 1 || event.Label.Labels[0].Description != "Short prompt" {
		t.Fatalf("expected label description to decode, got %+v", event.Label.Labels)
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	for _, s := range []Strategy{StrategyAdd, StrategyCreateAdd, StrategyCreateSetObject, StrategyCreateSetIDs} {
		got, err := ParseStrategy(string(s))
		if err != nil {
			t.Fatalf("ParseStrategy(%q) error = %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseStrategy(%q) = %q", s, got)
		}
	}

	got, err := ParseStrategy("")
	if err != nil || got != StrategyCreateAdd {
		t.Fatalf("expected empty strategy to default to create-add, got %q, %v", got, err)
	}

	if _, err := ParseStrategy("bogus"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
