package database

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'moderator', 'admin')),
			is_superuser BOOLEAN NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL DEFAULT '',
			confirmation_code TEXT NOT NULL DEFAULT '',
			date_joined DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS titles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			description TEXT,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
		);`,
		`CREATE TABLE IF NOT EXISTS title_genres (
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			PRIMARY KEY (title_id, genre_id)
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			score INTEGER NOT NULL CHECK (score >= 1 AND score <= 10),
			pub_date DATETIME NOT NULL,
			CONSTRAINT unique_review UNIQUE (author_id, title_id)
		);`,
		`CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			pub_date DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_titles_category ON titles(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_title_genres_genre ON title_genres(genre_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_title ON reviews(title_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_pub_date ON reviews(pub_date);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_review ON comments(review_id);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_pub_date ON comments(pub_date);`,
	}

	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate stmt %d: %w", i, err)
		}
	}
	return nil
}
