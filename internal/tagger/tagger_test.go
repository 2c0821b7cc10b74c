package tagger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/readlater-relay/internal/relay"
	"github.com/JakeFAU/readlater-relay/internal/retry"
)

type fakeIDGen struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeIDGen) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return "00000000-0000-4000-8000-000000000000", nil
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

// fakeContent records operation calls and fails createLabel a configured
// number of times before succeeding.
type fakeContent struct {
	mu          sync.Mutex
	calls       []string
	createFails int
	linkFails   int
	setLabels   []relay.Label
	setIDs      []string
}

func (f *fakeContent) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeContent) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeContent) CreateLabel(_ context.Context, label relay.Label) (relay.Label, error) {
	f.record("createLabel")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFails > 0 {
		f.createFails--
		return relay.Label{}, errors.New("remote errors field")
	}
	label.ID = "label-1"
	return label, nil
}

func (f *fakeContent) AddLabelToHighlight(_ context.Context, _, _ string) error {
	f.record("addLabelToHighlight")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkFails > 0 {
		f.linkFails--
		return errors.New("remote errors field")
	}
	return nil
}

func (f *fakeContent) SetHighlightLabels(_ context.Context, _ string, ids []string) error {
	f.record("setLabels")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setIDs = ids
	return nil
}

func (f *fakeContent) SetHighlightLabelsByObject(_ context.Context, _ string, labels []relay.Label) error {
	f.record("setLabelsByObject")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLabels = labels
	return nil
}

func (f *fakeContent) ArticleBySlug(context.Context, string) (relay.Article, error) {
	f.record("article")
	return relay.Article{}, errors.New("not implemented")
}

func (f *fakeContent) CreateHighlight(context.Context, relay.HighlightInput) (relay.Highlight, error) {
	f.record("createHighlight")
	return relay.Highlight{}, errors.New("not implemented")
}

func (f *fakeContent) UpdateHighlight(context.Context, relay.HighlightInput) (relay.Highlight, error) {
	f.record("updateHighlight")
	return relay.Highlight{}, errors.New("not implemented")
}

func sleepRecorder(waits *[]time.Duration) retry.Sleeper {
	var mu sync.Mutex
	return func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		*waits = append(*waits, d)
		return nil
	}
}

func newTagger(content *fakeContent, strategy relay.Strategy, waits *[]time.Duration) *Tagger {
	return New(content, &fakeIDGen{}, sleepRecorder(waits), Config{
		Strategy: strategy,
		Retry:    retry.Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second},
	}, zap.NewNop())
}

func TestAttach_CreateAddOrder(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateAdd, &waits)

	tag, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(tag, TagPrefix))
	require.Len(t, strings.TrimPrefix(tag, TagPrefix), 36)
	require.Equal(t, []string{"createLabel", "addLabelToHighlight"}, content.calls)
	require.Empty(t, waits)
}

func TestAttach_SetDirectlySingleCall(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyAdd, &waits)

	existing := []relay.Label{{ID: "l0", Name: "keep-me"}}
	tag, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1", Labels: existing})
	require.NoError(t, err)
	require.Equal(t, []string{"setLabelsByObject"}, content.calls)
	require.Len(t, content.setLabels, 2)
	require.Equal(t, "keep-me", content.setLabels[0].Name)
	require.Equal(t, tag, content.setLabels[1].Name)
}

func TestAttach_CreateSetByIDsPreservesExisting(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateSetIDs, &waits)

	existing := []relay.Label{{ID: "l0", Name: "keep-me"}}
	_, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1", Labels: existing})
	require.NoError(t, err)
	require.Equal(t, []string{"createLabel", "setLabels"}, content.calls)
	require.Equal(t, []string{"l0", "label-1"}, content.setIDs)
}

func TestAttach_CreateSetByObject(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateSetObject, &waits)

	tag, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.NoError(t, err)
	require.Equal(t, []string{"createLabel", "setLabelsByObject"}, content.calls)
	require.Len(t, content.setLabels, 1)
	require.Equal(t, tag, content.setLabels[0].Name)
	require.Equal(t, "label-1", content.setLabels[0].ID)
}

func TestAttach_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	// Fails 2 times, succeeds on 3rd attempt.
	content := &fakeContent{createFails: 2}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateAdd, &waits)

	tag, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.NoError(t, err)
	require.NotEmpty(t, tag)
	require.Equal(t, 3, content.callCount("createLabel"))
	require.Equal(t, 1, content.callCount("addLabelToHighlight"))
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
}

func TestAttach_RetryExhausted(t *testing.T) {
	t.Parallel()

	// Fails more times than the retry budget allows.
	content := &fakeContent{createFails: 5}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateAdd, &waits)

	_, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.ErrorIs(t, err, retry.ErrExhausted)
	require.Equal(t, 3, content.callCount("createLabel"))
	require.Equal(t, 0, content.callCount("addLabelToHighlight"))
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
	require.NotContains(t, err.Error(), "remote errors field")
}

func TestAttach_LinkFailureLeavesLabelBehind(t *testing.T) {
	t.Parallel()

	content := &fakeContent{linkFails: 5}
	var waits []time.Duration
	tg := newTagger(content, relay.StrategyCreateAdd, &waits)

	_, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.ErrorIs(t, err, retry.ErrExhausted)
	// The created label is not compensated; only the link is retried.
	require.Equal(t, 1, content.callCount("createLabel"))
	require.Equal(t, 3, content.callCount("addLabelToHighlight"))
}

func TestAttach_TagsAreDistinct(t *testing.T) {
	t.Parallel()

	content := &fakeContent{}
	var waits []time.Duration
	tg := New(content, &fakeIDGen{ids: []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
	}}, sleepRecorder(&waits), Config{Strategy: relay.StrategyCreateAdd}, zap.NewNop())

	tag1, err := tg.Attach(context.Background(), relay.Highlight{ID: "h1"})
	require.NoError(t, err)
	tag2, err := tg.Attach(context.Background(), relay.Highlight{ID: "h2"})
	require.NoError(t, err)
	require.NotEqual(t, tag1, tag2)
}
