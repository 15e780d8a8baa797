package ideas

import (
	"context"
	"fmt"
	"log/slog"

	"ideaforge/internal/llm"
	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
)

const (
	auditMaxTokens   = 500
	auditTemperature = 0.7
)

// Auditor produces devil's-advocate critiques of stored ideas.
type Auditor struct {
	store   Store
	llm     llm.Completer
	prompts *llm.Prompts
	logger  *slog.Logger
}

// NewAuditor builds an Auditor. Only Prompts and Logger of opts are used.
func NewAuditor(st Store, c llm.Completer, opts Options) *Auditor {
	prompts := opts.Prompts
	if prompts == nil {
		prompts = llm.DefaultPrompts()
	}
	return &Auditor{store: st, llm: c, prompts: prompts, logger: logger.OrDiscard(opts.Logger)}
}

// Audit critiques the idea and stores the answer, replacing any earlier audit.
// A missing idea is store.ErrNotFound.
func (a *Auditor) Audit(ctx context.Context, ideaID int64) (string, error) {
	idea, err := a.store.GetIdea(ctx, ideaID)
	if err != nil {
		return "", err
	}
	prompt, err := a.prompts.Audit(llm.AuditPromptData{Content: idea.Content})
	if err != nil {
		return "", err
	}
	text, err := a.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: auditMaxTokens, Temperature: auditTemperature})
	if err != nil {
		return "", err
	}
	if err := a.store.SetIdeaAudit(ctx, ideaID, text); err != nil {
		return "", fmt.Errorf("save audit: %w", err)
	}
	metrics.RecordIdea("audit")
	a.logger.Info("idea audited", "idea_id", ideaID, "replaced", idea.HasAudit())
	return text, nil
}
