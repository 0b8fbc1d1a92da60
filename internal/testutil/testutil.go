// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yamdb/internal/access"
	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

// OpenTestDB returns a migrated in-memory database closed at test cleanup.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// CreateUser inserts a user with email <username>@example.com.
func CreateUser(t *testing.T, db *sql.DB, username string, role models.Role) models.User {
	t.Helper()
	return insertUser(t, db, username, role, false)
}

func CreateSuperuser(t *testing.T, db *sql.DB, username string) models.User {
	t.Helper()
	return insertUser(t, db, username, models.RoleUser, true)
}

func insertUser(t *testing.T, db *sql.DB, username string, role models.Role, superuser bool) models.User {
	u := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Role:        role,
		IsSuperuser: superuser,
		DateJoined:  time.Now().UTC(),
	}
	res, err := db.Exec(`INSERT INTO users(username, email, role, is_superuser, date_joined) VALUES(?,?,?,?,?)`,
		u.Username, u.Email, string(u.Role), u.IsSuperuser, u.DateJoined)
	require.NoError(t, err)
	u.ID, err = res.LastInsertId()
	require.NoError(t, err)
	return u
}

func CreateCategory(t *testing.T, db *sql.DB, name, slug string) models.Category {
	t.Helper()
	res, err := db.Exec(`INSERT INTO categories(name, slug) VALUES(?,?)`, name, slug)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Category{ID: id, Name: name, Slug: slug}
}

func CreateGenre(t *testing.T, db *sql.DB, name, slug string) models.Genre {
	t.Helper()
	res, err := db.Exec(`INSERT INTO genres(name, slug) VALUES(?,?)`, name, slug)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Genre{ID: id, Name: name, Slug: slug}
}

// CreateTitle inserts a title with an optional category and genre links.
func CreateTitle(t *testing.T, db *sql.DB, name string, year int, category *models.Category, genres ...models.Genre) models.Title {
	t.Helper()
	var catID any
	if category != nil {
		catID = category.ID
	}
	res, err := db.Exec(`INSERT INTO titles(name, year, category_id) VALUES(?,?,?)`, name, year, catID)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	for _, g := range genres {
		_, err := db.Exec(`INSERT INTO title_genres(title_id, genre_id) VALUES(?,?)`, id, g.ID)
		require.NoError(t, err)
	}
	return models.Title{ID: id, Name: name, Year: year, Category: category, Genre: genres}
}

func CreateReview(t *testing.T, db *sql.DB, title models.Title, author models.User, score int) models.Review {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO reviews(title_id, author_id, text, score, pub_date) VALUES(?,?,?,?,?)`,
		title.ID, author.ID, "review by "+author.Username, score, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Review{
		ID: id, TitleID: title.ID, Title: title.Name,
		AuthorID: author.ID, Author: author.Username,
		Text: "review by " + author.Username, Score: score, PubDate: now,
	}
}

func CreateComment(t *testing.T, db *sql.DB, review models.Review, author models.User, text string) models.Comment {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO comments(review_id, author_id, text, pub_date) VALUES(?,?,?,?)`,
		review.ID, author.ID, text, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Comment{ID: id, ReviewID: review.ID, AuthorID: author.ID, Author: author.Username, Text: text, PubDate: now}
}

// As builds the requester for u.
func As(u models.User) access.Requester {
	return access.Requester{UserID: u.ID, Username: u.Username, Role: u.Role, IsSuperuser: u.IsSuperuser}
}

func Get(who access.Requester) access.Request    { return access.NewRequest(http.MethodGet, who) }
func Post(who access.Requester) access.Request   { return access.NewRequest(http.MethodPost, who) }
func Put(who access.Requester) access.Request    { return access.NewRequest(http.MethodPut, who) }
func Patch(who access.Requester) access.Request  { return access.NewRequest(http.MethodPatch, who) }
func Delete(who access.Requester) access.Request { return access.NewRequest(http.MethodDelete, who) }
