package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const articleColumns = `a.id, a.title, a.link, a.summary, a.source, a.published_at, a.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(r rowScanner) (Article, error) {
	var (
		a         Article
		summary   sql.NullString
		published sql.NullTime
	)
	if err := r.Scan(&a.ID, &a.Title, &a.Link, &summary, &a.Source, &published, &a.CreatedAt); err != nil {
		return Article{}, err
	}
	if summary.Valid {
		a.Summary = summary.String
	}
	if published.Valid {
		t := published.Time
		a.PublishedAt = &t
	}
	a.Tags = []Tag{}
	return a, nil
}

// InsertArticle stores a new article unless one with the same link exists.
// A duplicate link is a no-op and reports inserted=false.
func (s *Store) InsertArticle(ctx context.Context, in NewArticle) (bool, error) {
	link := strings.TrimSpace(in.Link)
	if link == "" {
		return false, errors.New("missing link")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO articles (title, link, summary, source, published_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(link) DO NOTHING`,
		in.Title, link, nullIfEmpty(in.Summary), in.Source, nullTime(in.PublishedAt), s.timestamp(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ArticleByLink returns the article with the given link or ErrNotFound.
func (s *Store) ArticleByLink(ctx context.Context, link string) (Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.link = ?`, strings.TrimSpace(link))
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, err
	}
	return s.withTags(ctx, a)
}

// GetArticle returns the article with its tags or ErrNotFound.
func (s *Store) GetArticle(ctx context.Context, id int64) (Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, err
	}
	return s.withTags(ctx, a)
}

// ArticlesByIDs returns the articles that exist, in the order the ids were given.
func (s *Store) ArticlesByIDs(ctx context.Context, ids []int64) ([]Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := placeholders(ids)
	found, err := s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Article, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// ArticlesByTagIDs returns every article carrying at least one of the tags.
func (s *Store) ArticlesByTagIDs(ctx context.Context, tagIDs []int64) ([]Article, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	marks, args := placeholders(tagIDs)
	return s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles a
        WHERE EXISTS (SELECT 1 FROM article_tags at WHERE at.article_id = a.id AND at.tag_id IN (`+marks+`))
        ORDER BY a.id`, args...)
}

// TaggedArticles returns every article with at least one tag.
func (s *Store) TaggedArticles(ctx context.Context) ([]Article, error) {
	return s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles a
        WHERE EXISTS (SELECT 1 FROM article_tags at WHERE at.article_id = a.id)
        ORDER BY a.id`)
}

// UntaggedArticles returns up to limit articles without tags. Articles never
// attempted come first, oldest first; failed ones follow by least recent attempt.
func (s *Store) UntaggedArticles(ctx context.Context, limit int) ([]Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles a
        WHERE NOT EXISTS (SELECT 1 FROM article_tags at WHERE at.article_id = a.id)
        ORDER BY a.tag_attempted_at IS NOT NULL, a.tag_attempted_at, a.id
        LIMIT ?`, limit)
}

// MarkTagAttempt records a failed tag extraction so the article moves behind
// the rest of the untagged backlog.
func (s *Store) MarkTagAttempt(ctx context.Context, articleID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET tag_attempted_at = ? WHERE id = ?`, s.timestamp(), articleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", articleID, ErrNotFound)
	}
	return nil
}

// ListArticles pages through articles, newest first.
func (s *Store) ListArticles(ctx context.Context, skip, limit int) ([]Article, error) {
	skip, limit = clampPage(skip, limit, 20)
	return s.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles a
        ORDER BY a.created_at DESC, a.id DESC
        LIMIT ? OFFSET ?`, limit, skip)
}

// CountArticles returns the total number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}

func (s *Store) queryArticles(ctx context.Context, q string, args ...any) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	// close before loading tags: the pool holds a single connection
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) withTags(ctx context.Context, a Article) (Article, error) {
	list := []Article{a}
	if err := s.loadTags(ctx, list); err != nil {
		return Article{}, err
	}
	return list[0], nil
}

// loadTags fills Tags on each article in association order.
func (s *Store) loadTags(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]int64, len(articles))
	idx := make(map[int64]int, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		idx[a.ID] = i
	}
	marks, args := placeholders(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT at.article_id, t.id, t.name, t.created_at
        FROM article_tags at JOIN tags t ON t.id = at.tag_id
        WHERE at.article_id IN (`+marks+`)
        ORDER BY at.article_id, at.position`, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			articleID int64
			t         Tag
		)
		if err := rows.Scan(&articleID, &t.ID, &t.Name, &t.CreatedAt); err != nil {
			return err
		}
		i := idx[articleID]
		articles[i].Tags = append(articles[i].Tags, t)
	}
	return rows.Err()
}
