// Package tagging derives topic tags for untagged articles with the LLM gateway.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ideaforge/internal/llm"
	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
	"ideaforge/internal/store"
)

const (
	// MaxTags caps the tags kept per article.
	MaxTags = 5
	// DefaultBatchLimit is how many untagged articles one run processes.
	DefaultBatchLimit = 10

	maxTokens   = 200
	temperature = 0.3
)

// ErrNoTags means the model answered but no tag survived parsing.
var ErrNoTags = errors.New("no tags in response")

// Store is the slice of the article store the extractor needs.
type Store interface {
	UntaggedArticles(ctx context.Context, limit int) ([]store.Article, error)
	ReplaceArticleTags(ctx context.Context, articleID int64, names []string) ([]store.Tag, error)
	MarkTagAttempt(ctx context.Context, articleID int64) error
}

// Result aggregates one batch run.
type Result struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Errors    []ArticleError `json:"errors"`
}

// ArticleError is the per-article failure entry of a Result.
type ArticleError struct {
	NewsID int64  `json:"news_id"`
	Error  string `json:"error"`
}

// Options configure an Extractor.
type Options struct {
	Prompts *llm.Prompts
	// RequestsPerMinute paces gateway calls; 0 means unlimited.
	RequestsPerMinute int
	Logger            *slog.Logger
}

// Extractor tags articles one at a time. Each article's tags are committed in a single transaction.
type Extractor struct {
	store   Store
	llm     llm.Completer
	prompts *llm.Prompts
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New builds an Extractor.
func New(st Store, c llm.Completer, opts Options) *Extractor {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = llm.DefaultPrompts()
	}
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}
	return &Extractor{
		store:   st,
		llm:     c,
		prompts: prompts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.OrDiscard(opts.Logger),
	}
}

// ProcessUntagged tags up to limit articles that have no tags yet. Per-article
// failures are recorded in the result; failed articles stay untagged and are
// retried on later runs behind articles not yet attempted. The returned error is non-nil only when the
// batch could not be selected or ctx ended early.
func (e *Extractor) ProcessUntagged(ctx context.Context, limit int) (Result, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	res := Result{Errors: []ArticleError{}}
	articles, err := e.store.UntaggedArticles(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("select untagged articles: %w", err)
	}
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tags, err := e.ExtractAndSave(ctx, a)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, ArticleError{NewsID: a.ID, Error: err.Error()})
			metrics.RecordTagging("error")
			e.logger.Warn("tag extraction failed", "article_id", a.ID, "error", err)
			if err := e.store.MarkTagAttempt(ctx, a.ID); err != nil {
				e.logger.Warn("record tag attempt", "article_id", a.ID, "error", err)
			}
			continue
		}
		res.Processed++
		metrics.RecordTagging("ok")
		e.logger.Debug("article tagged", "article_id", a.ID, "tags", len(tags))
	}
	e.logger.Info("tag extraction completed", "selected", len(articles), "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

// ExtractAndSave asks the model for tags and replaces the article's associations.
// The model call happens before the transaction opens.
func (e *Extractor) ExtractAndSave(ctx context.Context, a store.Article) ([]store.Tag, error) {
	names, err := e.Extract(ctx, a)
	if err != nil {
		return nil, err
	}
	tags, err := e.store.ReplaceArticleTags(ctx, a.ID, names)
	if err != nil {
		return nil, fmt.Errorf("save tags: %w", err)
	}
	return tags, nil
}

// Extract returns the parsed tag names for an article without storing them.
func (e *Extractor) Extract(ctx context.Context, a store.Article) ([]string, error) {
	prompt, err := e.prompts.Tags(llm.TagPromptData{Title: a.Title, Summary: a.Summary})
	if err != nil {
		return nil, err
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	text, err := e.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: maxTokens, Temperature: temperature})
	if err != nil {
		return nil, err
	}
	names := ParseTags(text)
	if len(names) == 0 {
		return nil, ErrNoTags
	}
	return names, nil
}

var separators = strings.NewReplacer("，", ",", "、", ",", "\n", ",")

// ParseTags splits a comma-separated model answer into at most MaxTags unique,
// trimmed, non-empty names in answer order.
func ParseTags(text string) []string {
	parts := strings.Split(separators.Replace(text), ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, MaxTags)
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
