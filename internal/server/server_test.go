package server

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/app"
	"ideaforge/internal/config"
	"ideaforge/internal/llm"
	"ideaforge/internal/store"
)

type cannedLLM struct{}

func (cannedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	if strings.Contains(req.Prompt, "風險投資人") {
		return "🔥 誰付錢？", nil
	}
	return "點子名稱：社區冰箱\n概念說明：" + strings.Repeat("長", 500), nil
}

func newTools(t *testing.T) (*Tools, *app.App) {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "mcp.db")
	a, err := app.New(context.Background(), cfg, nil, app.WithCompleter(cannedLLM{}))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return NewTools(a), a
}

func seedTagged(t *testing.T, a *app.App, titles ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for i, title := range titles {
		link := "https://example.com/" + title
		_, err := a.Store.InsertArticle(ctx, store.NewArticle{Title: title, Link: link, Source: "Example", Summary: strings.Repeat("s", 450)})
		require.NoError(t, err)
		art, err := a.Store.ArticleByLink(ctx, link)
		require.NoError(t, err)
		_, err = a.Store.ReplaceArticleTags(ctx, art.ID, []string{"tag" + string(rune('A'+i))})
		require.NoError(t, err)
		ids = append(ids, art.ID)
	}
	return ids
}

func TestListTools(t *testing.T) {
	tools, a := newTools(t)
	seedTagged(t, a, "one", "two")
	ctx := context.Background()

	_, out, err := tools.handleListArticles(ctx, nil, ListParams{})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, 2, m["total"])
	assert.Equal(t, 2, m["count"])

	one := 1
	_, out, err = tools.handleListTags(ctx, nil, ListParams{Limit: &one})
	require.NoError(t, err)
	m = out.(map[string]any)
	assert.Equal(t, 2, m["total"])
	assert.Equal(t, 1, m["count"])

	_, out, err = tools.handleListIdeas(ctx, nil, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.(map[string]any)["count"])
}

func TestGenerateAuditExportTools(t *testing.T) {
	tools, a := newTools(t)
	ids := seedTagged(t, a, "one", "two")
	ctx := context.Background()

	_, out, err := tools.handleGenerateIdea(ctx, nil, GenerateIdeaParams{ArticleIDs: ids})
	require.NoError(t, err)
	m := out.(map[string]any)
	require.Equal(t, true, m["ok"])
	idea := m["idea"].(map[string]any)
	assert.Equal(t, "社區冰箱", idea["title"])
	id := idea["id"].(int64)

	_, out, err = tools.handleDevilAudit(ctx, nil, IdeaParams{IdeaID: id})
	require.NoError(t, err)
	assert.Equal(t, "🔥 誰付錢？", out.(map[string]any)["audit_questions"])

	_, out, err = tools.handleExportIdea(ctx, nil, IdeaParams{IdeaID: id})
	require.NoError(t, err)
	assert.Contains(t, out.(map[string]any)["content"], "# 社區冰箱")

	_, out, err = tools.handleListIdeas(ctx, nil, ListParams{})
	require.NoError(t, err)
	items := out.(map[string]any)["items"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["has_audit"])
	assert.True(t, strings.HasSuffix(items[0]["content_preview"].(string), "..."))
}

func TestToolFailuresCarryHints(t *testing.T) {
	tools, _ := newTools(t)
	ctx := context.Background()

	_, out, err := tools.handleGenerateIdea(ctx, nil, GenerateIdeaParams{})
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, false, m["ok"])
	assert.Contains(t, m["hint"], "ideaforge fetch")

	_, out, err = tools.handleDevilAudit(ctx, nil, IdeaParams{IdeaID: 3})
	require.NoError(t, err)
	m = out.(map[string]any)
	assert.Equal(t, false, m["ok"])
	assert.Contains(t, m["hint"], "list_ideas")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("字", previewRunes+1)
	assert.Equal(t, strings.Repeat("字", previewRunes)+"...", preview(long))
}

func TestLimitOrCapsPageSize(t *testing.T) {
	zero, five, huge := 0, 5, 10000
	assert.Equal(t, 20, limitOr(nil, 20))
	assert.Equal(t, 20, limitOr(&zero, 20))
	assert.Equal(t, 5, limitOr(&five, 20))
	assert.Equal(t, store.MaxPageSize, limitOr(&huge, 20))
}
