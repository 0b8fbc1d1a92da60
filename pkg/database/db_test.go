package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func mustExec(t *testing.T, db *sql.DB, q string, args ...any) sql.Result {
	t.Helper()
	res, err := db.Exec(q, args...)
	require.NoError(t, err)
	return res
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
}

func TestReviewUniquePerAuthorAndTitle(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	mustExec(t, db, `INSERT INTO users (id, username, email) VALUES (1, 'alice', 'a@x.com')`)
	mustExec(t, db, `INSERT INTO titles (id, name, year) VALUES (1, 'Dune', 1965)`)
	mustExec(t, db, `INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (1, 1, 'good', 8, ?)`, now)

	_, err := db.Exec(`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (1, 1, 'again', 9, ?)`, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestScoreCheckConstraint(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO users (id, username, email) VALUES (1, 'alice', 'a@x.com')`)
	mustExec(t, db, `INSERT INTO titles (id, name, year) VALUES (1, 'Dune', 1965)`)

	_, err := db.Exec(`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (1, 1, 'x', 11, ?)`, time.Now())
	require.Error(t, err)
	assert.True(t, IsCheckViolation(err))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.Exec(`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (42, 42, 'x', 5, ?)`, time.Now())
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestCascadeAndSetNull(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	mustExec(t, db, `INSERT INTO users (id, username, email) VALUES (1, 'alice', 'a@x.com')`)
	mustExec(t, db, `INSERT INTO categories (id, name, slug) VALUES (1, 'Books', 'books')`)
	mustExec(t, db, `INSERT INTO genres (id, name, slug) VALUES (1, 'Sci-Fi', 'sci-fi')`)
	mustExec(t, db, `INSERT INTO titles (id, name, year, category_id) VALUES (1, 'Dune', 1965, 1)`)
	mustExec(t, db, `INSERT INTO title_genres (title_id, genre_id) VALUES (1, 1)`)
	mustExec(t, db, `INSERT INTO reviews (id, title_id, author_id, text, score, pub_date) VALUES (1, 1, 1, 'good', 8, ?)`, now)
	mustExec(t, db, `INSERT INTO comments (review_id, author_id, text, pub_date) VALUES (1, 1, 'agree', ?)`, now)

	mustExec(t, db, `DELETE FROM categories WHERE id = 1`)
	var categoryID sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT category_id FROM titles WHERE id = 1`).Scan(&categoryID))
	assert.False(t, categoryID.Valid, "category deletion must null the reference")

	mustExec(t, db, `DELETE FROM genres WHERE id = 1`)
	assert.Equal(t, 1, countRows(t, db, "titles"))
	assert.Equal(t, 0, countRows(t, db, "title_genres"))

	mustExec(t, db, `DELETE FROM titles WHERE id = 1`)
	assert.Equal(t, 0, countRows(t, db, "reviews"))
	assert.Equal(t, 0, countRows(t, db, "comments"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, EscapeLike(`50%_off\`))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
}

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "id,username,email,role,bio,first_name,last_name\n"+
		"100,bingobongo,bingobongo@yamdb.fake,user,,,\n"+
		"101,capt_obvious,capt_obvious@yamdb.fake,admin,,,\n")
	writeCSV(t, dir, "category.csv", "id,name,slug\n1,Фильм,movie\n2,Книга,book\n")
	writeCSV(t, dir, "genre.csv", "id,name,slug\n1,Драма,drama\n2,Комедия,comedy\n")
	writeCSV(t, dir, "titles.csv", "id,name,year,category\n1,Побег из Шоушенка,1994,1\n2,Крестный отец,1972,1\n")
	writeCSV(t, dir, "review.csv", "id,title_id,text,author,score,pub_date\n"+
		"1,1,Ставлю десять,100,10,2019-09-24T21:08:21.567Z\n"+
		"2,1,Не понравилось,101,1,2019-09-24T21:08:21.567Z\n")
	writeCSV(t, dir, "comments.csv", "id,review_id,text,author,pub_date\n1,1,Согласен,101,2019-09-24T21:08:21.567Z\n")
	writeCSV(t, dir, "genre_title.csv", "id,title_id,genre_id\n1,1,1\n2,2,1\n3,2,2\n")
	return dir
}

func TestLoadCSVDir(t *testing.T) {
	db := setupTestDB(t)
	dir := writeFixtures(t)

	counts, err := LoadCSVDir(context.Background(), db, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["users.csv"])
	assert.Equal(t, 2, counts["titles.csv"])
	assert.Equal(t, 3, counts["genre_title.csv"])

	var role string
	require.NoError(t, db.QueryRow(`SELECT role FROM users WHERE id = 101`).Scan(&role))
	assert.Equal(t, "admin", role)
	assert.Equal(t, 1, countRows(t, db, "comments"))
}

func TestLoadCSVDirRefusesSecondRun(t *testing.T) {
	db := setupTestDB(t)
	dir := writeFixtures(t)

	_, err := LoadCSVDir(context.Background(), db, dir)
	require.NoError(t, err)

	_, err = LoadCSVDir(context.Background(), db, dir)
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
}

func TestLoadCSVDirRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	dir := writeFixtures(t)
	writeCSV(t, dir, "review.csv", "id,title_id,text,author,score,pub_date\n1,1,bad,100,10,not-a-date\n")

	_, err := LoadCSVDir(context.Background(), db, dir)
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, db, "users"))
}
