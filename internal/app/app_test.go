package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/config"
	"ideaforge/internal/ideas"
	"ideaforge/internal/llm"
	"ideaforge/internal/scheduler"
	"ideaforge/internal/sources"
)

type stubCompleter struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	if strings.Contains(req.Prompt, "新聞標題") {
		return "AI, 醫療科技, 創業投資", nil
	}
	return "點子名稱：測試點子\n概念說明：x", nil
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(w, `<item><title>Story %d</title><link>https://news.example.com/%d</link><description>d%d</description></item>`, i, i, i)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, c llm.Completer, feedURL string) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.RSS.Sources = []sources.Source{{Name: "Local", URL: feedURL}}
	a, err := New(context.Background(), cfg, nil, WithCompleter(c))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRunCycleThenGenerate(t *testing.T) {
	srv := feedServer(t)
	c := &stubCompleter{}
	a := newTestApp(t, c, srv.URL)
	ctx := context.Background()

	res, err := a.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RSS.NewArticles)
	require.NotNil(t, res.Tags)
	assert.Equal(t, 3, res.Tags.Processed)

	idea, err := a.Ideas.Generate(ctx, ideas.Selection{})
	require.NoError(t, err)
	assert.Equal(t, "測試點子", idea.Title)

	audit, err := a.Auditor.Audit(ctx, idea.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, audit)

	st := a.Scheduler.Status()
	require.Len(t, st, 2)
	assert.Equal(t, JobFetch, st[0].Name)
	assert.Equal(t, "1h0m0s", st[0].Interval)
	assert.Equal(t, JobTags, st[1].Name)
	assert.Equal(t, "10m0s", st[1].Interval)
	assert.Equal(t, 1, st[0].Runs)
}

func TestRunCycleSkipTags(t *testing.T) {
	srv := feedServer(t)
	a := newTestApp(t, &stubCompleter{}, srv.URL)

	res, err := a.RunCycle(context.Background(), CycleOptions{SkipTags: true})
	require.NoError(t, err)
	assert.Nil(t, res.Tags)
	untagged, err := a.Store.UntaggedArticles(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, untagged, 3)
}

func TestRunTaggingRejectsOverlap(t *testing.T) {
	srv := feedServer(t)
	c := &stubCompleter{block: make(chan struct{})}
	a := newTestApp(t, c, srv.URL)
	ctx := context.Background()
	_, err := a.RunCycle(ctx, CycleOptions{SkipTags: true})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := a.RunTagging(ctx, 1)
		done <- err
	}()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.calls == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, err = a.RunTagging(ctx, 1)
	assert.ErrorIs(t, err, scheduler.ErrJobRunning)

	close(c.block)
	require.NoError(t, <-done)
}

func TestRunCycleSkipsBusyTagStep(t *testing.T) {
	srv := feedServer(t)
	c := &stubCompleter{}
	a := newTestApp(t, c, srv.URL)
	ctx := context.Background()

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- a.Scheduler.TryRun(ctx, JobTags, func(context.Context) error {
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		for _, st := range a.Scheduler.Status() {
			if st.Name == JobTags {
				return st.Running
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	res, err := a.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RSS.NewArticles)
	assert.Nil(t, res.Tags)
	assert.True(t, res.TagsSkipped)

	n, err := a.Store.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	c.mu.Lock()
	assert.Zero(t, c.calls)
	c.mu.Unlock()

	close(release)
	require.NoError(t, <-done)
}
