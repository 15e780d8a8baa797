package list

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "list.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyListingsPrintHints(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	var buf bytes.Buffer

	require.NoError(t, Articles(ctx, &buf, s, 0, 20))
	require.NoError(t, Tags(ctx, &buf, s, 0, 20))
	require.NoError(t, Ideas(ctx, &buf, s, 0, 20))
	out := buf.String()
	assert.Contains(t, out, "ideaforge fetch")
	assert.Contains(t, out, "ideaforge tag")
	assert.Contains(t, out, "ideaforge generate")
}

func TestListingsRenderRows(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.InsertArticle(ctx, store.NewArticle{Title: "AI 醫療新突破", Link: "https://example.com/a", Source: "TechNews"})
	require.NoError(t, err)
	_, err = s.InsertArticle(ctx, store.NewArticle{Title: strings.Repeat("長", 80), Link: "https://example.com/b", Source: "TechNews"})
	require.NoError(t, err)
	a, err := s.ArticleByLink(ctx, "https://example.com/a")
	require.NoError(t, err)
	_, err = s.ReplaceArticleTags(ctx, a.ID, []string{"AI", "醫療"})
	require.NoError(t, err)
	idea, err := s.CreateIdea(ctx, "冷鏈無人機", "content", "A", "B")
	require.NoError(t, err)
	require.NoError(t, s.SetIdeaAudit(ctx, idea.ID, "🔥"))

	var buf bytes.Buffer
	require.NoError(t, Articles(ctx, &buf, s, 0, 20))
	out := buf.String()
	assert.Contains(t, out, "Showing 2 of 2 articles")
	assert.Contains(t, out, "AI, 醫療")
	assert.Contains(t, out, "(untagged)")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("長", 61))

	buf.Reset()
	require.NoError(t, Tags(ctx, &buf, s, 0, 1))
	assert.Contains(t, buf.String(), "Showing 1 of 2 tags")

	buf.Reset()
	require.NoError(t, Ideas(ctx, &buf, s, 0, 20))
	out = buf.String()
	assert.Contains(t, out, "冷鏈無人機")
	assert.Contains(t, out, "A + B")
	assert.Contains(t, out, "yes")
}
