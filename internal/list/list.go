// Package list renders stored articles, tags and ideas as terminal tables.
package list

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"ideaforge/internal/store"
)

const (
	titleRunes = 60
	dateLayout = "2006-01-02 15:04"
)

// Store is the read side the listings need.
type Store interface {
	ListArticles(ctx context.Context, skip, limit int) ([]store.Article, error)
	CountArticles(ctx context.Context) (int, error)
	ListTags(ctx context.Context, skip, limit int) ([]store.Tag, error)
	CountTags(ctx context.Context) (int, error)
	ListIdeas(ctx context.Context, skip, limit int) ([]store.Idea, error)
	CountIdeas(ctx context.Context) (int, error)
}

// Articles prints one page of articles, newest first.
func Articles(ctx context.Context, w io.Writer, st Store, skip, limit int) error {
	rows, err := st.ListArticles(ctx, skip, limit)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}
	total, err := st.CountArticles(ctx)
	if err != nil {
		return fmt.Errorf("count articles: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No articles stored yet.")
		fmt.Fprintln(w, "Hint: run 'ideaforge fetch' to pull the configured feeds.")
		return nil
	}
	data := make([][]string, 0, len(rows))
	for _, a := range rows {
		published := "-"
		if a.PublishedAt != nil {
			published = a.PublishedAt.Local().Format(dateLayout)
		}
		tags := strings.Join(a.TagNames(), ", ")
		if tags == "" {
			tags = "(untagged)"
		}
		data = append(data, []string{strconv.FormatInt(a.ID, 10), truncate(a.Title), a.Source, published, tags})
	}
	fmt.Fprintf(w, "Showing %d of %d articles:\n\n", len(rows), total)
	return render(w, []string{"ID", "Title", "Source", "Published", "Tags"}, data)
}

// Tags prints one page of tags ordered by name.
func Tags(ctx context.Context, w io.Writer, st Store, skip, limit int) error {
	rows, err := st.ListTags(ctx, skip, limit)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	total, err := st.CountTags(ctx)
	if err != nil {
		return fmt.Errorf("count tags: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No tags extracted yet.")
		fmt.Fprintln(w, "Hint: run 'ideaforge tag' after fetching articles.")
		return nil
	}
	data := make([][]string, 0, len(rows))
	for _, t := range rows {
		data = append(data, []string{strconv.FormatInt(t.ID, 10), t.Name, t.CreatedAt.Local().Format(dateLayout)})
	}
	fmt.Fprintf(w, "Showing %d of %d tags:\n\n", len(rows), total)
	return render(w, []string{"ID", "Name", "Created"}, data)
}

// Ideas prints one page of ideas, newest first.
func Ideas(ctx context.Context, w io.Writer, st Store, skip, limit int) error {
	rows, err := st.ListIdeas(ctx, skip, limit)
	if err != nil {
		return fmt.Errorf("list ideas: %w", err)
	}
	total, err := st.CountIdeas(ctx)
	if err != nil {
		return fmt.Errorf("count ideas: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No ideas generated yet.")
		fmt.Fprintln(w, "Hint: run 'ideaforge generate' once at least two articles are tagged.")
		return nil
	}
	data := make([][]string, 0, len(rows))
	for _, i := range rows {
		audited := "no"
		if i.HasAudit() {
			audited = "yes"
		}
		data = append(data, []string{
			strconv.FormatInt(i.ID, 10),
			truncate(i.Title),
			truncate(i.SourceTitle1) + " + " + truncate(i.SourceTitle2),
			audited,
			i.CreatedAt.Local().Format(dateLayout),
		})
	}
	fmt.Fprintf(w, "Showing %d of %d ideas:\n\n", len(rows), total)
	return render(w, []string{"ID", "Title", "Sources", "Audited", "Created"}, data)
}

func render(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > titleRunes {
		return string(r[:titleRunes-1]) + "…"
	}
	return s
}
