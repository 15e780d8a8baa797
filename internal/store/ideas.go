package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const ideaColumns = `id, title, content, source_title_1, source_title_2, devil_audit, created_at`

func scanIdea(r rowScanner) (Idea, error) {
	var (
		i     Idea
		audit sql.NullString
	)
	if err := r.Scan(&i.ID, &i.Title, &i.Content, &i.SourceTitle1, &i.SourceTitle2, &audit, &i.CreatedAt); err != nil {
		return Idea{}, err
	}
	if audit.Valid {
		a := audit.String
		i.DevilAudit = &a
	}
	return i, nil
}

// CreateIdea persists a new idea without an audit and returns the stored row.
func (s *Store) CreateIdea(ctx context.Context, title, content, source1, source2 string) (Idea, error) {
	if strings.TrimSpace(content) == "" {
		return Idea{}, errors.New("idea content is empty")
	}
	created := s.timestamp()
	res, err := s.db.ExecContext(ctx, `INSERT INTO ideas (title, content, source_title_1, source_title_2, created_at)
        VALUES (?, ?, ?, ?, ?)`, title, content, source1, source2, created)
	if err != nil {
		return Idea{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Idea{}, err
	}
	return Idea{
		ID:           id,
		Title:        title,
		Content:      content,
		SourceTitle1: source1,
		SourceTitle2: source2,
		CreatedAt:    created,
	}, nil
}

// GetIdea returns the idea with the given id or ErrNotFound.
func (s *Store) GetIdea(ctx context.Context, id int64) (Idea, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id)
	i, err := scanIdea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Idea{}, ErrNotFound
	}
	return i, err
}

// ListIdeas pages through ideas, newest first.
func (s *Store) ListIdeas(ctx context.Context, skip, limit int) ([]Idea, error) {
	skip, limit = clampPage(skip, limit, 20)
	rows, err := s.db.QueryContext(ctx, `SELECT `+ideaColumns+` FROM ideas ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Idea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// CountIdeas returns the total number of ideas.
func (s *Store) CountIdeas(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ideas`).Scan(&n)
	return n, err
}

// SetIdeaAudit stores audit as the idea's devil audit, replacing any previous one.
func (s *Store) SetIdeaAudit(ctx context.Context, id int64, audit string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE ideas SET devil_audit = ? WHERE id = ?`, audit, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
