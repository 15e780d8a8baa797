package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ideaforge/internal/app"
	"ideaforge/internal/ideas"
	"ideaforge/internal/sources"
	"ideaforge/internal/store"
	"ideaforge/internal/version"
)

type page[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}

type pairResponse struct {
	NewsA store.Article `json:"news_a"`
	NewsB store.Article `json:"news_b"`
}

type generateRequest struct {
	TagIDs  []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
	NewsIDs []int64 `json:"news_ids" validate:"omitempty,dive,gt=0"`
}

type auditRequest struct {
	IdeaID int64 `json:"idea_id" validate:"required,gt=0"`
}

type auditResponse struct {
	IdeaID         int64  `json:"idea_id"`
	AuditQuestions string `json:"audit_questions"`
}

type exportResponse struct {
	IdeaID  int64  `json:"idea_id"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "IdeaForge API is running",
		"version": version.Version,
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) listNews(c echo.Context) error {
	skip, limit, err := pageParams(c, 20)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := s.app.Store.ListArticles(ctx, skip, limit)
	if err != nil {
		return err
	}
	total, err := s.app.Store.CountArticles(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page[store.Article]{Total: total, Items: nonNil(items)})
}

func (s *Server) randomPair(c echo.Context) error {
	a, b, err := s.app.Ideas.RandomPair(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pairResponse{NewsA: a, NewsB: b})
}

func (s *Server) listTags(c echo.Context) error {
	skip, limit, err := pageParams(c, 50)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := s.app.Store.ListTags(ctx, skip, limit)
	if err != nil {
		return err
	}
	total, err := s.app.Store.CountTags(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page[store.Tag]{Total: total, Items: nonNil(items)})
}

func (s *Server) getNews(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := s.app.Store.GetArticle(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// triggerFetch runs one fetch then tag cycle. Repeated ?source= names restrict the feeds.
func (s *Server) triggerFetch(c echo.Context) error {
	var opts app.CycleOptions
	for _, name := range c.QueryParams()["source"] {
		src, ok := sources.Find(s.app.Config.RSS.Sources, name)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown source: "+name)
		}
		opts.Sources = append(opts.Sources, src)
	}
	res, err := s.app.RunCycle(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) listIdeas(c echo.Context) error {
	skip, limit, err := pageParams(c, 20)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := s.app.Store.ListIdeas(ctx, skip, limit)
	if err != nil {
		return err
	}
	total, err := s.app.Store.CountIdeas(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page[store.Idea]{Total: total, Items: nonNil(items)})
}

func (s *Server) getIdea(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	idea, err := s.app.Store.GetIdea(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idea)
}

func (s *Server) generateIdea(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	idea, err := s.app.Ideas.Generate(c.Request().Context(), ideas.Selection{
		ArticleIDs: req.NewsIDs,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idea)
}

func (s *Server) devilAudit(c echo.Context) error {
	var req auditRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	text, err := s.app.Auditor.Audit(c.Request().Context(), req.IdeaID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditResponse{IdeaID: req.IdeaID, AuditQuestions: text})
}

func (s *Server) exportIdea(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	md, err := ideas.Export(c.Request().Context(), s.app.Store, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, exportResponse{IdeaID: id, Format: "markdown", Content: md})
}

func (s *Server) jobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"jobs": s.app.Scheduler.Status()})
}

func pageParams(c echo.Context, defLimit int) (int, int, error) {
	skip, limit := 0, defLimit
	err := echo.QueryParamsBinder(c).
		Int("skip", &skip).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "skip and limit must be integers")
	}
	if skip < 0 || limit < 1 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "skip must be >= 0 and limit >= 1")
	}
	if limit > store.MaxPageSize {
		limit = store.MaxPageSize
	}
	return skip, limit, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id: "+c.Param("id"))
	}
	return id, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
