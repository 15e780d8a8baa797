package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetTag returns the tag with the given id or ErrNotFound.
func (s *Store) GetTag(ctx context.Context, id int64) (Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	return t, err
}

// TagByName returns the tag with exactly this name or ErrNotFound.
func (s *Store) TagByName(ctx context.Context, name string) (Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	return t, err
}

// ListTags pages through tags ordered by name.
func (s *Store) ListTags(ctx context.Context, skip, limit int) ([]Tag, error) {
	skip, limit = clampPage(skip, limit, 50)
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM tags ORDER BY name LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTags returns the total number of tags.
func (s *Store) CountTags(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&n)
	return n, err
}

// ReplaceArticleTags resolves every name with get-or-create and makes the result the
// article's complete tag set, in the given order. Everything happens in one transaction:
// on failure the article keeps its previous tags and no new tag rows survive.
// Blank and repeated names are ignored.
func (s *Store) ReplaceArticleTags(ctx context.Context, articleID int64, names []string) ([]Tag, error) {
	names = uniqueNames(names)
	var (
		resolved []Tag
		uncached []Tag
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = ?`, articleID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		for _, name := range names {
			t, cached, err := s.getOrCreateTag(ctx, tx, name)
			if err != nil {
				return fmt.Errorf("resolve tag %q: %w", name, err)
			}
			resolved = append(resolved, t)
			if !cached {
				uncached = append(uncached, t)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, articleID); err != nil {
			return err
		}
		for pos, t := range resolved {
			if _, err := tx.ExecContext(ctx, `INSERT INTO article_tags (article_id, tag_id, position) VALUES (?, ?, ?)`, articleID, t.ID, pos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// only committed rows go into the cache
	for _, t := range uncached {
		s.tags.Add(t.Name, t)
	}
	return resolved, nil
}

// getOrCreateTag relies on the UNIQUE(name) constraint: a concurrent insert of the same
// name turns into a no-op and the follow-up select returns the surviving row.
func (s *Store) getOrCreateTag(ctx context.Context, tx *sql.Tx, name string) (Tag, bool, error) {
	if t, ok := s.tags.Get(name); ok {
		return t, true, nil
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tags (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`, name, s.timestamp()); err != nil {
		return Tag{}, false, err
	}
	var t Tag
	if err := tx.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		return Tag{}, false, err
	}
	return t, false, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
