package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	neturl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	trafilatura "github.com/markusmobius/go-trafilatura"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"ideaforge/internal/httpclient"
	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
	"ideaforge/internal/sources"
	"ideaforge/internal/store"
)

const (
	// UntitledTitle replaces empty entry titles.
	UntitledTitle = "無標題"

	defaultWorkers    = 4
	maxExtractedRunes = 1500
	feedAccept        = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8"
)

// ArticleWriter is the slice of the store the fetcher needs.
type ArticleWriter interface {
	InsertArticle(ctx context.Context, in store.NewArticle) (bool, error)
}

// Options configure a Fetcher.
type Options struct {
	HTTP                  *httpclient.Client
	Workers               int
	MaxPostsPerFeed       int
	ExtractMissingSummary bool
	Logger                *slog.Logger
}

// Fetcher pulls feed documents and persists entries whose link is not yet stored.
type Fetcher struct {
	store    ArticleWriter
	http     *httpclient.Client
	workers  int
	maxPosts int
	extract  bool
	logger   *slog.Logger
}

// NewFetcher constructs a fetcher with sensible defaults.
func NewFetcher(w ArticleWriter, opts Options) *Fetcher {
	hc := opts.HTTP
	if hc == nil {
		hc = httpclient.New(0)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fetcher{
		store:    w,
		http:     hc,
		workers:  workers,
		maxPosts: opts.MaxPostsPerFeed,
		extract:  opts.ExtractMissingSummary,
		logger:   logger.OrDiscard(opts.Logger),
	}
}

// FetchAll fetches every source with bounded concurrency. Per-source failures are
// recorded in the result and never abort the remaining sources.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []sources.Source) Result {
	counts := make([]int, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, src := range srcs {
		g.Go(func() error {
			counts[i], errs[i] = f.FetchSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{TotalSources: len(srcs), Errors: []SourceError{}}
	for i, src := range srcs {
		res.NewArticles += counts[i]
		if errs[i] != nil {
			res.Failed++
			res.Errors = append(res.Errors, SourceError{Source: src.Name, Error: errs[i].Error()})
			metrics.RecordFeedError(src.Name, errorKind(errs[i]))
			f.logger.Warn("rss source failed", "source", src.Name, "url", src.URL, "error", errs[i])
			continue
		}
		res.Success++
	}
	f.logger.Info("rss fetch completed",
		"sources", res.TotalSources, "success", res.Success, "failed", res.Failed, "new_articles", res.NewArticles)
	return res
}

// FetchSource fetches and stores one source. It returns the number of new articles;
// entries stored before a failure are kept.
func (f *Fetcher) FetchSource(ctx context.Context, src sources.Source) (int, error) {
	body, err := f.http.Fetch(ctx, src.URL, map[string]string{"Accept": feedAccept})
	if err != nil {
		return 0, newFetchError(src.Name, err)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return 0, &ParseError{Source: src.Name, Err: err}
	}

	saved, skipped, err := f.storeItems(ctx, src, feed.Items)
	metrics.RecordIngested(src.Name, saved)
	f.logger.Debug("rss feed parsed", "source", src.Name, "items", len(feed.Items), "new", saved, "skipped", skipped)
	return saved, err
}

func (f *Fetcher) storeItems(ctx context.Context, src sources.Source, items []*gofeed.Item) (saved, skipped int, err error) {
	processed := 0
	for _, it := range items {
		if f.maxPosts > 0 && processed >= f.maxPosts {
			break
		}
		if err := ctx.Err(); err != nil {
			return saved, skipped, err
		}
		in, ok := f.entryArticle(ctx, src, it)
		if !ok {
			skipped++
			continue
		}
		processed++
		inserted, err := f.store.InsertArticle(ctx, in)
		if err != nil {
			return saved, skipped, fmt.Errorf("store entry %s: %w", in.Link, err)
		}
		if inserted {
			saved++
		} else {
			skipped++
		}
	}
	return saved, skipped, nil
}

// entryArticle maps a feed item to an insert. Items without a link or GUID are skipped.
func (f *Fetcher) entryArticle(ctx context.Context, src sources.Source, it *gofeed.Item) (store.NewArticle, bool) {
	if it == nil {
		return store.NewArticle{}, false
	}
	link := firstNonEmpty(it.Link, it.GUID)
	if link == "" {
		f.logger.Debug("skip entry without link", "source", src.Name, "title", it.Title)
		return store.NewArticle{}, false
	}
	title := strings.TrimSpace(it.Title)
	if title == "" {
		title = UntitledTitle
	}
	summary := htmlToText(firstNonEmpty(it.Description, it.Content))
	if summary == "" && f.extract {
		summary = truncateRunes(f.extractMainText(ctx, link), maxExtractedRunes)
	}
	return store.NewArticle{
		Title:       title,
		Link:        link,
		Summary:     summary,
		Source:      src.Name,
		PublishedAt: publishedAt(it),
	}, true
}

func publishedAt(it *gofeed.Item) *time.Time {
	var t *time.Time
	switch {
	case it.PublishedParsed != nil:
		t = it.PublishedParsed
	case it.UpdatedParsed != nil:
		t = it.UpdatedParsed
	default:
		return nil
	}
	u := t.UTC()
	return &u
}

func (f *Fetcher) extractMainText(ctx context.Context, link string) string {
	body, err := f.http.Fetch(ctx, link, nil)
	if err != nil || len(body) == 0 {
		f.logger.Debug("summary extraction fetch failed", "url", link, "error", err)
		return ""
	}
	res, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:    func() *neturl.URL { u, _ := neturl.Parse(link); return u }(),
		EnableFallback: true,
		Focus:          trafilatura.Balanced,
	})
	if err != nil || res == nil {
		return ""
	}
	return strings.TrimSpace(res.ContentText)
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// htmlToText converts a small HTML fragment into plain text by walking the node tree
// and concatenating text nodes with minimal whitespace normalization.
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	n, err := html.Parse(strings.NewReader(s))
	if err != nil || n == nil {
		return strings.Join(strings.Fields(tagRe.ReplaceAllString(s, " ")), " ")
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
