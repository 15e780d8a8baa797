// Package server exposes articles, tags and ideas as MCP tools over stdio.
package server

import (
	"context"
	"errors"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"ideaforge/internal/app"
	"ideaforge/internal/ideas"
	"ideaforge/internal/llm"
	"ideaforge/internal/store"
	"ideaforge/internal/version"
)

const previewRunes = 400

type ListParams struct {
	Skip  int  `json:"skip,omitempty"`
	Limit *int `json:"limit,omitempty"`
	// IncludeContent returns full summaries or idea bodies instead of previews.
	IncludeContent bool `json:"include_content"`
}

type GenerateIdeaParams struct {
	ArticleIDs []int64 `json:"news_ids,omitempty"`
	TagIDs     []int64 `json:"tag_ids,omitempty"`
}

type IdeaParams struct {
	IdeaID int64 `json:"idea_id"`
}

// Tools binds MCP handlers to an App.
type Tools struct {
	app *app.App
}

func NewTools(a *app.App) *Tools {
	return &Tools{app: a}
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "list_articles", Description: "List stored news articles with their tags, newest first"}, t.handleListArticles)
	mcp.AddTool(server, &mcp.Tool{Name: "list_tags", Description: "List extracted tags ordered by name"}, t.handleListTags)
	mcp.AddTool(server, &mcp.Tool{Name: "list_ideas", Description: "List generated business ideas, newest first"}, t.handleListIdeas)
	mcp.AddTool(server, &mcp.Tool{Name: "generate_idea", Description: "Generate a business idea from two articles chosen by id, by tag ids, or at random"}, t.handleGenerateIdea)
	mcp.AddTool(server, &mcp.Tool{Name: "devil_audit", Description: "Stress-test an idea with a devil's advocate audit; replaces any earlier audit"}, t.handleDevilAudit)
	mcp.AddTool(server, &mcp.Tool{Name: "export_idea", Description: "Export an idea as Obsidian-style Markdown"}, t.handleExportIdea)
}

// Run serves the tools over stdio until ctx is done.
func Run(ctx context.Context, a *app.App) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "ideaforge", Version: "v" + version.Version}, nil)
	NewTools(a).Register(server)
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (t *Tools) handleListArticles(ctx context.Context, req *mcp.CallToolRequest, p ListParams) (*mcp.CallToolResult, any, error) {
	rows, err := t.app.Store.ListArticles(ctx, p.Skip, limitOr(p.Limit, 20))
	if err != nil {
		return nil, failure("Query failed while reading articles", err), nil
	}
	total, err := t.app.Store.CountArticles(ctx)
	if err != nil {
		return nil, failure("Query failed while counting articles", err), nil
	}
	type item struct {
		ID          int64      `json:"id"`
		Title       string     `json:"title"`
		URL         string     `json:"url"`
		Source      string     `json:"source"`
		PublishedAt *time.Time `json:"published_at,omitempty"`
		Tags        []string   `json:"tags"`
		Summary     string     `json:"summary,omitempty"`
		Preview     string     `json:"summary_preview,omitempty"`
	}
	items := make([]item, 0, len(rows))
	for _, a := range rows {
		it := item{
			ID:          a.ID,
			Title:       a.Title,
			URL:         a.Link,
			Source:      a.Source,
			PublishedAt: a.PublishedAt,
			Tags:        a.TagNames(),
		}
		if p.IncludeContent {
			it.Summary = a.Summary
		} else {
			it.Preview = preview(a.Summary)
		}
		items = append(items, it)
	}
	return nil, map[string]any{"total": total, "count": len(items), "items": items}, nil
}

func (t *Tools) handleListTags(ctx context.Context, req *mcp.CallToolRequest, p ListParams) (*mcp.CallToolResult, any, error) {
	tags, err := t.app.Store.ListTags(ctx, p.Skip, limitOr(p.Limit, 50))
	if err != nil {
		return nil, failure("Query failed while reading tags", err), nil
	}
	total, err := t.app.Store.CountTags(ctx)
	if err != nil {
		return nil, failure("Query failed while counting tags", err), nil
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	return nil, map[string]any{"total": total, "count": len(tags), "items": tags}, nil
}

func (t *Tools) handleListIdeas(ctx context.Context, req *mcp.CallToolRequest, p ListParams) (*mcp.CallToolResult, any, error) {
	rows, err := t.app.Store.ListIdeas(ctx, p.Skip, limitOr(p.Limit, 20))
	if err != nil {
		return nil, failure("Query failed while reading ideas", err), nil
	}
	total, err := t.app.Store.CountIdeas(ctx)
	if err != nil {
		return nil, failure("Query failed while counting ideas", err), nil
	}
	items := make([]map[string]any, 0, len(rows))
	for _, idea := range rows {
		items = append(items, serializeIdea(idea, p.IncludeContent))
	}
	return nil, map[string]any{"total": total, "count": len(items), "items": items}, nil
}

func (t *Tools) handleGenerateIdea(ctx context.Context, req *mcp.CallToolRequest, p GenerateIdeaParams) (*mcp.CallToolResult, any, error) {
	idea, err := t.app.Ideas.Generate(ctx, ideas.Selection{ArticleIDs: p.ArticleIDs, TagIDs: p.TagIDs})
	if err != nil {
		return nil, generationFailure("Idea generation failed", err), nil
	}
	return nil, map[string]any{"ok": true, "idea": serializeIdea(idea, true)}, nil
}

func (t *Tools) handleDevilAudit(ctx context.Context, req *mcp.CallToolRequest, p IdeaParams) (*mcp.CallToolResult, any, error) {
	text, err := t.app.Auditor.Audit(ctx, p.IdeaID)
	if err != nil {
		return nil, generationFailure("Devil audit failed", err), nil
	}
	return nil, map[string]any{"ok": true, "idea_id": p.IdeaID, "audit_questions": text}, nil
}

func (t *Tools) handleExportIdea(ctx context.Context, req *mcp.CallToolRequest, p IdeaParams) (*mcp.CallToolResult, any, error) {
	md, err := ideas.Export(ctx, t.app.Store, p.IdeaID)
	if err != nil {
		return nil, generationFailure("Export failed", err), nil
	}
	return nil, map[string]any{"ok": true, "idea_id": p.IdeaID, "format": "markdown", "content": md}, nil
}

func serializeIdea(i store.Idea, includeContent bool) map[string]any {
	m := map[string]any{
		"id":            i.ID,
		"title":         i.Title,
		"news_source_1": i.SourceTitle1,
		"news_source_2": i.SourceTitle2,
		"created_at":    i.CreatedAt,
		"has_audit":     i.HasAudit(),
	}
	if includeContent {
		m["content"] = i.Content
		if i.DevilAudit != nil {
			m["devil_audit"] = *i.DevilAudit
		}
	} else {
		m["content_preview"] = preview(i.Content)
	}
	return m
}

func failure(msg string, err error) map[string]any {
	return map[string]any{"ok": false, "message": msg, "error": err.Error()}
}

// generationFailure adds a hint for the failures a caller can act on.
func generationFailure(msg string, err error) map[string]any {
	m := failure(msg, err)
	switch {
	case errors.Is(err, ideas.ErrInsufficientData):
		m["hint"] = "Fetch and tag more articles first (`ideaforge fetch`)."
	case errors.Is(err, store.ErrNotFound):
		m["hint"] = "Check the id with list_articles or list_ideas."
	case llm.IsRateLimited(err):
		m["hint"] = "The AI gateway is rate limiting requests; try again later."
	}
	return m
}

func limitOr(p *int, def int) int {
	if p == nil || *p <= 0 {
		return def
	}
	return min(*p, store.MaxPageSize)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewRunes {
		return string(r[:previewRunes]) + "..."
	}
	return s
}
