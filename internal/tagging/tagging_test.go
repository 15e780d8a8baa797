package tagging

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/llm"
	"ideaforge/internal/store"
)

// fakeCompleter answers by looking for a key in the prompt.
type fakeCompleter struct {
	mu       sync.Mutex
	answers  map[string]string
	failures map[string]error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	for key, err := range f.failures {
		if strings.Contains(req.Prompt, key) {
			return "", err
		}
	}
	for key, answer := range f.answers {
		if strings.Contains(req.Prompt, key) {
			return answer, nil
		}
	}
	return "", llm.ErrEmptyResponse
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tags.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addArticle(t *testing.T, s *store.Store, title string) store.Article {
	t.Helper()
	ctx := context.Background()
	_, err := s.InsertArticle(ctx, store.NewArticle{Title: title, Link: "https://example.com/" + title, Summary: "summary of " + title, Source: "Example"})
	require.NoError(t, err)
	a, err := s.ArticleByLink(ctx, "https://example.com/"+title)
	require.NoError(t, err)
	return a
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"AI, 醫療科技, 創業投資", []string{"AI", "醫療科技", "創業投資"}},
		{"  a ,, b ,", []string{"a", "b"}},
		{"人工智慧，醫療、數據", []string{"人工智慧", "醫療", "數據"}},
		{"a, b, a, c, d, e, f", []string{"a", "b", "c", "d", "e"}},
		{"AI, ai", []string{"AI", "ai"}},
		{" , ,", []string{}},
		{"", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTags(tc.in), tc.in)
	}
}

func TestProcessUntagged(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	good := addArticle(t, s, "good")
	bad := addArticle(t, s, "bad")
	empty := addArticle(t, s, "empty")
	also := addArticle(t, s, "also")

	fc := &fakeCompleter{
		answers: map[string]string{
			"good":  "AI, 醫療科技, 創業投資",
			"empty": " , ",
			"also":  "AI, 物流",
		},
		failures: map[string]error{"bad": &llm.GatewayError{StatusCode: 500}},
	}
	ex := New(s, fc, Options{})

	res, err := ex.ProcessUntagged(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, bad.ID, res.Errors[0].NewsID)
	assert.Equal(t, empty.ID, res.Errors[1].NewsID)
	assert.Equal(t, ErrNoTags.Error(), res.Errors[1].Error)

	got, err := s.GetArticle(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI", "醫療科技", "創業投資"}, got.TagNames())

	// shared tag resolved to a single row
	n, err := s.CountTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	alsoTagged, err := s.GetArticle(ctx, also.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Tags[0].ID, alsoTagged.Tags[0].ID)

	for _, req := range fc.requests {
		assert.Equal(t, 200, req.MaxTokens)
		assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	}

	// failed articles stay untagged and are retried next run
	fc.failures = nil
	fc.answers["bad"] = "風險"
	fc.answers["empty"] = "空白"
	res, err = ex.ProcessUntagged(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 2, Errors: []ArticleError{}}, res)

	untagged, err := s.UntaggedArticles(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, untagged)
}

func TestProcessUntaggedRespectsLimit(t *testing.T) {
	s := openStore(t)
	for _, title := range []string{"one", "two", "three"} {
		addArticle(t, s, title)
	}
	fc := &fakeCompleter{answers: map[string]string{"summary": "tag"}}
	res, err := New(s, fc, Options{}).ProcessUntagged(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Len(t, fc.requests, 2)
}

func TestFailingArticlesDoNotStarveBacklog(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	clock := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	bad1 := addArticle(t, s, "refused-1")
	bad2 := addArticle(t, s, "refused-2")
	bad3 := addArticle(t, s, "refused-3")
	fresh := addArticle(t, s, "fresh")

	fc := &fakeCompleter{
		answers:  map[string]string{"fresh": "物流, 冷鏈"},
		failures: map[string]error{"refused": llm.ErrEmptyResponse},
	}
	ex := New(s, fc, Options{})

	res, err := ex.ProcessUntagged(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 3, res.Failed)

	res, err = ex.ProcessUntagged(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, bad1.ID, res.Errors[0].NewsID)
	assert.Equal(t, bad2.ID, res.Errors[1].NewsID)

	got, err := s.GetArticle(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"物流", "冷鏈"}, got.TagNames())

	// the least recently attempted failure leads the next batch
	res, err = ex.ProcessUntagged(ctx, 3)
	require.NoError(t, err)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, bad3.ID, res.Errors[0].NewsID)
}

func TestPromptOverrideIsUsed(t *testing.T) {
	s := openStore(t)
	a := addArticle(t, s, "custom")
	prompts, err := llm.NewPrompts(llm.PromptOverrides{Tags: "TAGS:{{.Title}}"})
	require.NoError(t, err)
	fc := &fakeCompleter{answers: map[string]string{"TAGS:custom": "x"}}

	names, err := New(s, fc, Options{Prompts: prompts}).Extract(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)
}

type failingStore struct{ Store }

func (failingStore) UntaggedArticles(context.Context, int) ([]store.Article, error) {
	return nil, errors.New("db closed")
}

func TestProcessUntaggedSelectionError(t *testing.T) {
	_, err := New(failingStore{}, &fakeCompleter{}, Options{}).ProcessUntagged(context.Background(), 1)
	assert.ErrorContains(t, err, "db closed")
}
