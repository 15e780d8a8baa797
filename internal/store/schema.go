package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema ensures the DB has the tables needed for articles, tags and ideas.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            link TEXT NOT NULL UNIQUE,
            summary TEXT,
            source TEXT NOT NULL,
            published_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL,
            tag_attempted_at TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at)`,
		`CREATE TABLE IF NOT EXISTS tags (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS article_tags (
            article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
            tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
            position INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (article_id, tag_id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id)`,
		`CREATE TABLE IF NOT EXISTS ideas (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            content TEXT NOT NULL,
            source_title_1 TEXT NOT NULL,
            source_title_2 TEXT NOT NULL,
            devil_audit TEXT,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_created_at ON ideas(created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	for _, c := range addedColumns {
		if err := addColumn(ctx, db, c.table, c.column, c.decl); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
	}
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_articles_tag_attempted_at ON articles(tag_attempted_at)`)
	return err
}

// addedColumns lists columns that databases created by older versions lack.
var addedColumns = []struct{ table, column, decl string }{
	{"articles", "tag_attempted_at", "TIMESTAMP"},
}

func addColumn(ctx context.Context, db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}
