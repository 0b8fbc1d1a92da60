package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

// TitleFilter narrows ListTitles; zero fields are ignored and the rest are
// AND-combined.
type TitleFilter struct {
	Name     string
	Genre    string
	Category string
	Year     *int
}

const titleSelect = `SELECT t.id, t.name, t.year, t.description, c.id, c.name, c.slug
	FROM titles t LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(row interface{ Scan(...any) error }) (models.Title, error) {
	var t models.Title
	var desc sql.NullString
	var catID sql.NullInt64
	var catName, catSlug sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Year, &desc, &catID, &catName, &catSlug); err != nil {
		return models.Title{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if catID.Valid {
		t.Category = &models.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
	}
	t.Genre = []models.Genre{}
	return t, nil
}

func (f TitleFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Name != "" {
		conds = append(conds, `t.name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+database.EscapeLike(f.Name)+"%")
	}
	if f.Category != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, f.Category)
	}
	if f.Year != nil {
		conds = append(conds, `t.year = ?`)
		args = append(args, *f.Year)
	}
	if f.Genre != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = t.id AND g.slug = ?)`)
		args = append(args, f.Genre)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTitles returns matching titles with genres and rating filled in.
func ListTitles(ctx context.Context, q database.Querier, f TitleFilter, limit, offset int) ([]models.Title, int, error) {
	where, args := f.where()

	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	rows, err := q.QueryContext(ctx, titleSelect+where+` ORDER BY t.id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	res := []models.Title{}
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := hydrate(ctx, q, res); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

// GetTitle returns sql.ErrNoRows when id is unknown.
func GetTitle(ctx context.Context, q database.Querier, id int64) (models.Title, error) {
	t, err := scanTitle(q.QueryRowContext(ctx, titleSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return models.Title{}, err
	}
	ts := []models.Title{t}
	if err := hydrate(ctx, q, ts); err != nil {
		return models.Title{}, err
	}
	return ts[0], nil
}

// TitleName returns sql.ErrNoRows when id is unknown.
func TitleName(ctx context.Context, q database.Querier, id int64) (string, error) {
	var name string
	err := q.QueryRowContext(ctx, `SELECT name FROM titles WHERE id = ?`, id).Scan(&name)
	return name, err
}

// hydrate fills Genre and Rating for ts.
func hydrate(ctx context.Context, q database.Querier, ts []models.Title) error {
	if len(ts) == 0 {
		return nil
	}
	ids := make([]int64, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}

	rows, err := q.QueryContext(ctx, `SELECT tg.title_id, g.id, g.name, g.slug
		FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id IN (`+database.Placeholders(len(ids))+`) ORDER BY g.id`, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load title genres: %w", err)
	}
	genres := map[int64][]models.Genre{}
	for rows.Next() {
		var titleID int64
		var g models.Genre
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			rows.Close()
			return err
		}
		genres[titleID] = append(genres[titleID], g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	scores, err := scoresByTitle(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range ts {
		if gs, ok := genres[ts[i].ID]; ok {
			ts[i].Genre = gs
		}
		ts[i].Rating = Mean(scores[ts[i].ID])
	}
	return nil
}

// titleRow is the stored form of a title: category and genres by id.
type titleRow struct {
	ID          int64
	Name        string
	Year        int
	Description *string
	CategoryID  *int64
	GenreIDs    []int64
}

func insertTitle(ctx context.Context, q database.Querier, r *titleRow) error {
	res, err := q.ExecContext(ctx, `INSERT INTO titles(name, year, description, category_id) VALUES(?,?,?,?)`,
		r.Name, r.Year, r.Description, r.CategoryID)
	if err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return setGenres(ctx, q, r.ID, r.GenreIDs)
}

func updateTitle(ctx context.Context, q database.Querier, r titleRow) error {
	_, err := q.ExecContext(ctx, `UPDATE titles SET name = ?, year = ?, description = ?, category_id = ? WHERE id = ?`,
		r.Name, r.Year, r.Description, r.CategoryID, r.ID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return setGenres(ctx, q, r.ID, r.GenreIDs)
}

func setGenres(ctx context.Context, q database.Querier, titleID int64, genreIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM title_genres WHERE title_id = ?`, titleID); err != nil {
		return fmt.Errorf("clear title genres: %w", err)
	}
	for _, gid := range genreIDs {
		_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO title_genres(title_id, genre_id) VALUES(?,?)`, titleID, gid)
		if err != nil {
			return fmt.Errorf("link genre %d: %w", gid, err)
		}
	}
	return nil
}

func deleteTitle(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	return err
}

func rowOf(t models.Title) titleRow {
	r := titleRow{ID: t.ID, Name: t.Name, Year: t.Year, Description: t.Description}
	if t.Category != nil {
		id := t.Category.ID
		r.CategoryID = &id
	}
	for _, g := range t.Genre {
		r.GenreIDs = append(r.GenreIDs, g.ID)
	}
	return r
}
