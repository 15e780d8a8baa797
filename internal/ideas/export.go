package ideas

import (
	"context"
	"strings"

	"ideaforge/internal/store"
)

// IdeaGetter loads a single idea.
type IdeaGetter interface {
	GetIdea(ctx context.Context, id int64) (store.Idea, error)
}

// Export loads an idea and renders it with ExportMarkdown.
func Export(ctx context.Context, st IdeaGetter, ideaID int64) (string, error) {
	idea, err := st.GetIdea(ctx, ideaID)
	if err != nil {
		return "", err
	}
	return ExportMarkdown(idea), nil
}

// ExportMarkdown renders an idea as an Obsidian-style note.
func ExportMarkdown(idea store.Idea) string {
	var sb strings.Builder
	sb.WriteString("# " + idea.Title + "\n\n")
	sb.WriteString("> 建立時間：" + idea.CreatedAt.Format("2006-01-02 15:04") + "\n\n")
	sb.WriteString("## 靈感來源\n\n")
	sb.WriteString("- 新聞 A：" + orNone(idea.SourceTitle1) + "\n")
	sb.WriteString("- 新聞 B：" + orNone(idea.SourceTitle2) + "\n\n")
	sb.WriteString("## 構想內容\n\n")
	sb.WriteString(idea.Content + "\n\n")
	if idea.DevilAudit != nil && strings.TrimSpace(*idea.DevilAudit) != "" {
		sb.WriteString("## 魔鬼審計\n\n")
		sb.WriteString(*idea.DevilAudit + "\n\n")
	}
	sb.WriteString("---\ntags: #idea #generated\n")
	return sb.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "無"
	}
	return s
}
