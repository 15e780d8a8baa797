// Package ideas synthesizes business ideas from article pairs and audits them.
package ideas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"ideaforge/internal/llm"
	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
	"ideaforge/internal/store"
)

const (
	synthesisMaxTokens   = 800
	synthesisTemperature = 0.8
)

// ErrInsufficientData means fewer than two articles are eligible for pairing.
var ErrInsufficientData = errors.New("insufficient data: need at least two tagged articles")

// Store is the slice of the article store the synthesizer and auditor need.
type Store interface {
	ArticlesByIDs(ctx context.Context, ids []int64) ([]store.Article, error)
	ArticlesByTagIDs(ctx context.Context, tagIDs []int64) ([]store.Article, error)
	TaggedArticles(ctx context.Context) ([]store.Article, error)
	CreateIdea(ctx context.Context, title, content, source1, source2 string) (store.Idea, error)
	GetIdea(ctx context.Context, id int64) (store.Idea, error)
	SetIdeaAudit(ctx context.Context, id int64, audit string) error
}

// Selection narrows the article pair. With two or more ArticleIDs the first two
// are used in order; otherwise TagIDs pick from articles carrying any of those tags;
// otherwise the pair comes from all tagged articles.
type Selection struct {
	ArticleIDs []int64 `json:"news_ids"`
	TagIDs     []int64 `json:"tag_ids"`
}

// Options configure a Synthesizer.
type Options struct {
	Prompts *llm.Prompts
	Logger  *slog.Logger
	// Rand drives random pair selection. Nil seeds a new source.
	Rand *rand.Rand
}

// Synthesizer selects article pairs and turns them into ideas.
type Synthesizer struct {
	store   Store
	llm     llm.Completer
	prompts *llm.Prompts
	logger  *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSynthesizer builds a Synthesizer.
func NewSynthesizer(st Store, c llm.Completer, opts Options) *Synthesizer {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = llm.DefaultPrompts()
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthesizer{
		store:   st,
		llm:     c,
		prompts: prompts,
		logger:  logger.OrDiscard(opts.Logger),
		rnd:     rnd,
	}
}

// Generate selects a pair per sel and synthesizes an idea from it.
func (s *Synthesizer) Generate(ctx context.Context, sel Selection) (store.Idea, error) {
	a, b, err := s.SelectPair(ctx, sel)
	if err != nil {
		return store.Idea{}, err
	}
	return s.Synthesize(ctx, a, b)
}

// SelectPair applies the pair-selection policy.
func (s *Synthesizer) SelectPair(ctx context.Context, sel Selection) (store.Article, store.Article, error) {
	switch {
	case len(sel.ArticleIDs) >= 2:
		return s.explicitPair(ctx, sel.ArticleIDs[0], sel.ArticleIDs[1])
	case len(sel.TagIDs) > 0:
		candidates, err := s.store.ArticlesByTagIDs(ctx, sel.TagIDs)
		if err != nil {
			return store.Article{}, store.Article{}, fmt.Errorf("articles by tag: %w", err)
		}
		return s.pick(candidates)
	default:
		return s.RandomPair(ctx)
	}
}

// RandomPair picks two distinct tagged articles uniformly at random.
func (s *Synthesizer) RandomPair(ctx context.Context) (store.Article, store.Article, error) {
	candidates, err := s.store.TaggedArticles(ctx)
	if err != nil {
		return store.Article{}, store.Article{}, fmt.Errorf("tagged articles: %w", err)
	}
	return s.pick(candidates)
}

func (s *Synthesizer) explicitPair(ctx context.Context, idA, idB int64) (store.Article, store.Article, error) {
	if idA == idB {
		return store.Article{}, store.Article{}, ErrInsufficientData
	}
	found, err := s.store.ArticlesByIDs(ctx, []int64{idA, idB})
	if err != nil {
		return store.Article{}, store.Article{}, fmt.Errorf("articles by id: %w", err)
	}
	if len(found) < 2 {
		return store.Article{}, store.Article{}, fmt.Errorf("article pair %d/%d: %w", idA, idB, store.ErrNotFound)
	}
	return found[0], found[1], nil
}

func (s *Synthesizer) pick(candidates []store.Article) (store.Article, store.Article, error) {
	n := len(candidates)
	if n < 2 {
		return store.Article{}, store.Article{}, ErrInsufficientData
	}
	s.mu.Lock()
	i := s.rnd.IntN(n)
	j := s.rnd.IntN(n - 1)
	s.mu.Unlock()
	if j >= i {
		j++
	}
	return candidates[i], candidates[j], nil
}

// Synthesize asks the model for an idea combining a and b and stores it.
// The full model answer becomes the idea content.
func (s *Synthesizer) Synthesize(ctx context.Context, a, b store.Article) (store.Idea, error) {
	prompt, err := s.prompts.Idea(llm.IdeaPromptData{
		TitleA: a.Title,
		TagsA:  strings.Join(a.TagNames(), ", "),
		TitleB: b.Title,
		TagsB:  strings.Join(b.TagNames(), ", "),
	})
	if err != nil {
		return store.Idea{}, err
	}
	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: synthesisMaxTokens, Temperature: synthesisTemperature})
	if err != nil {
		return store.Idea{}, err
	}
	idea, err := s.store.CreateIdea(ctx, ParseTitle(text), text, a.Title, b.Title)
	if err != nil {
		return store.Idea{}, fmt.Errorf("save idea: %w", err)
	}
	metrics.RecordIdea("idea")
	s.logger.Info("idea generated", "idea_id", idea.ID, "title", idea.Title, "article_a", a.ID, "article_b", b.ID)
	return idea, nil
}
