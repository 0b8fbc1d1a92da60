package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrAlreadyLoaded is returned by LoadCSVDir when a target table has rows.
var ErrAlreadyLoaded = errors.New("data already loaded")

type csvTable struct {
	file  string
	table string
	query string
	cols  []string
}

// Load order matters: rows reference earlier files by id.
var csvTables = []csvTable{
	{
		file:  "users.csv",
		table: "users",
		query: `INSERT INTO users (id, username, email, role, bio, first_name, last_name, date_joined) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cols:  []string{"id", "username", "email", "role", "bio", "first_name", "last_name"},
	},
	{
		file:  "category.csv",
		table: "categories",
		query: `INSERT INTO categories (id, name, slug) VALUES (?, ?, ?)`,
		cols:  []string{"id", "name", "slug"},
	},
	{
		file:  "genre.csv",
		table: "genres",
		query: `INSERT INTO genres (id, name, slug) VALUES (?, ?, ?)`,
		cols:  []string{"id", "name", "slug"},
	},
	{
		file:  "titles.csv",
		table: "titles",
		query: `INSERT INTO titles (id, name, year, category_id) VALUES (?, ?, ?, ?)`,
		cols:  []string{"id", "name", "year", "category"},
	},
	{
		file:  "review.csv",
		table: "reviews",
		query: `INSERT INTO reviews (id, title_id, text, author_id, score, pub_date) VALUES (?, ?, ?, ?, ?, ?)`,
		cols:  []string{"id", "title_id", "text", "author", "score", "pub_date"},
	},
	{
		file:  "comments.csv",
		table: "comments",
		query: `INSERT INTO comments (id, review_id, text, author_id, pub_date) VALUES (?, ?, ?, ?, ?)`,
		cols:  []string{"id", "review_id", "text", "author", "pub_date"},
	},
	{
		file:  "genre_title.csv",
		table: "title_genres",
		query: `INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)`,
		cols:  []string{"title_id", "genre_id"},
	},
}

// LoadCSVDir bulk-loads the fixture CSV files found in dir inside one
// transaction and returns the number of rows inserted per file.
func LoadCSVDir(ctx context.Context, db *sql.DB, dir string) (map[string]int, error) {
	for _, t := range csvTables {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t.table, err)
		}
		if n > 0 {
			return nil, fmt.Errorf("%s: %w", t.table, ErrAlreadyLoaded)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counts := make(map[string]int, len(csvTables))
	for _, t := range csvTables {
		n, err := loadCSVFile(ctx, tx, filepath.Join(dir, t.file), t)
		if err != nil {
			return nil, err
		}
		counts[t.file] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return counts, nil
}

func loadCSVFile(ctx context.Context, tx *sql.Tx, path string, t csvTable) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", t.file, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read %s header: %w", t.file, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range t.cols {
		if _, ok := index[c]; !ok {
			return 0, fmt.Errorf("%s: missing column %q", t.file, c)
		}
	}

	stmt, err := tx.PrepareContext(ctx, t.query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert %s: %w", t.table, err)
	}
	defer stmt.Close()

	inserted := 0
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s line %d: %w", t.file, line, err)
		}
		args, err := csvArgs(t, index, rec)
		if err != nil {
			return 0, fmt.Errorf("%s line %d: %w", t.file, line, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert %s line %d: %w", t.file, line, err)
		}
		inserted++
	}
	return inserted, nil
}

func csvArgs(t csvTable, index map[string]int, rec []string) ([]any, error) {
	args := make([]any, 0, len(t.cols)+1)
	for _, c := range t.cols {
		v := strings.TrimSpace(rec[index[c]])
		switch c {
		case "id", "title_id", "review_id", "genre_id", "author", "year", "score":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			args = append(args, n)
		case "category":
			if v == "" {
				args = append(args, nil)
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			args = append(args, n)
		case "role":
			if v == "" {
				v = "user"
			}
			args = append(args, v)
		case "pub_date":
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			args = append(args, ts.UTC())
		default:
			args = append(args, v)
		}
	}
	if t.table == "users" {
		args = append(args, time.Now().UTC())
	}
	return args, nil
}
