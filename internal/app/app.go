// Package app wires every component once per process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ideaforge/internal/config"
	"ideaforge/internal/httpclient"
	"ideaforge/internal/ideas"
	"ideaforge/internal/ingest"
	"ideaforge/internal/llm"
	"ideaforge/internal/logger"
	"ideaforge/internal/scheduler"
	"ideaforge/internal/sources"
	"ideaforge/internal/store"
	"ideaforge/internal/tagging"
)

// Job names registered with the scheduler.
const (
	JobFetch = "fetch_rss"
	JobTags  = "extract_tags"
)

// App holds the long-lived components.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     *store.Store
	LLM       llm.Completer
	Fetcher   *ingest.Fetcher
	Tagger    *tagging.Extractor
	Ideas     *ideas.Synthesizer
	Auditor   *ideas.Auditor
	Scheduler *scheduler.Scheduler
}

// Option adjusts construction, mainly for tests.
type Option func(*options)

type options struct {
	completer  llm.Completer
	httpClient *http.Client
}

// WithCompleter replaces the gateway client.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithHTTPClient sets the transport used by the gateway client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New opens the store and builds every component. Close releases the store.
func New(ctx context.Context, cfg config.Config, l *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	l = logger.OrDiscard(l)

	prompts, err := llm.NewPrompts(cfg.AI.PromptOverrides())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	completer := o.completer
	if completer == nil {
		completer = llm.New(llm.Options{
			BaseURL:    cfg.AI.BaseURL,
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			Timeout:    cfg.AI.TimeoutDuration(),
			HTTPClient: o.httpClient,
			Logger:     l.With("component", "llm"),
		})
	}
	if cfg.AI.APIKey == "" && o.completer == nil {
		l.Warn("no AI API key configured; tag extraction and idea synthesis will fail")
	}

	a := &App{
		Config: cfg,
		Logger: l,
		Store:  st,
		LLM:    completer,
		Fetcher: ingest.NewFetcher(st, ingest.Options{
			HTTP:                  httpclient.New(cfg.RSS.TimeoutDuration()),
			Workers:               cfg.RSS.Workers,
			MaxPostsPerFeed:       cfg.RSS.MaxPostsPerFeed,
			ExtractMissingSummary: cfg.RSS.ExtractMissingSummary,
			Logger:                l.With("component", "ingest"),
		}),
		Tagger: tagging.New(st, completer, tagging.Options{
			Prompts:           prompts,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
			Logger:            l.With("component", "tagging"),
		}),
		Ideas:     ideas.NewSynthesizer(st, completer, ideas.Options{Prompts: prompts, Logger: l.With("component", "ideas")}),
		Auditor:   ideas.NewAuditor(st, completer, ideas.Options{Prompts: prompts, Logger: l.With("component", "audit")}),
		Scheduler: scheduler.New(l.With("component", "scheduler")),
	}

	if err := a.Scheduler.Add(JobFetch, cfg.Schedule.FetchInterval(), a.fetchJob); err != nil {
		st.Close()
		return nil, err
	}
	if err := a.Scheduler.Add(JobTags, config.TagInterval, a.tagJob); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Start launches the scheduled jobs, optionally running both once immediately.
func (a *App) Start(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	if a.Config.Schedule.RunOnStart {
		for _, name := range []string{JobFetch, JobTags} {
			if err := a.Scheduler.RunNow(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop halts the scheduler and waits for in-flight jobs.
func (a *App) Stop() {
	a.Scheduler.Stop()
}

func (a *App) fetchJob(ctx context.Context) error {
	a.Fetcher.FetchAll(ctx, a.Config.RSS.Sources)
	return nil
}

func (a *App) tagJob(ctx context.Context) error {
	_, err := a.Tagger.ProcessUntagged(ctx, a.Config.Schedule.TagBatchLimit)
	return err
}

// CycleOptions narrow a manual cycle.
type CycleOptions struct {
	// Sources replaces the configured sources when non-empty.
	Sources []sources.Source
	// SkipTags stops after the fetch.
	SkipTags bool
	// TagLimit overrides the configured batch limit when positive.
	TagLimit int
}

// CycleResult is the outcome of a manual fetch-then-tag cycle.
type CycleResult struct {
	RSS  ingest.Result   `json:"rss"`
	Tags *tagging.Result `json:"tags"`
	// TagsSkipped is set when another tag extraction run was in flight.
	TagsSkipped bool `json:"tags_skipped"`
}

// RunCycle fetches feeds then tags untagged articles, each under its job's
// single-flight guard. scheduler.ErrJobRunning is returned when the fetch job
// is busy. A busy tag job leaves Tags nil and sets TagsSkipped, since the
// running batch will pick up the new articles.
func (a *App) RunCycle(ctx context.Context, opts CycleOptions) (CycleResult, error) {
	srcs := opts.Sources
	if len(srcs) == 0 {
		srcs = a.Config.RSS.Sources
	}
	var res CycleResult
	err := a.Scheduler.TryRun(ctx, JobFetch, func(ctx context.Context) error {
		res.RSS = a.Fetcher.FetchAll(ctx, srcs)
		return nil
	})
	if err != nil {
		return res, err
	}
	if opts.SkipTags {
		return res, nil
	}
	tags, err := a.RunTagging(ctx, opts.TagLimit)
	if errors.Is(err, scheduler.ErrJobRunning) {
		a.Logger.Info("tag step skipped", "job", JobTags, "reason", "already running")
		res.TagsSkipped = true
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Tags = &tags
	return res, nil
}

// RunTagging runs one tag extraction batch under the tag job's guard.
func (a *App) RunTagging(ctx context.Context, limit int) (tagging.Result, error) {
	if limit <= 0 {
		limit = a.Config.Schedule.TagBatchLimit
	}
	var res tagging.Result
	err := a.Scheduler.TryRun(ctx, JobTags, func(ctx context.Context) error {
		var err error
		res, err = a.Tagger.ProcessUntagged(ctx, limit)
		return err
	})
	return res, err
}
