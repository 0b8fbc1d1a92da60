package catalog

import (
	"context"
	"fmt"

	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

// Categories and genres share one table shape.
type termTable string

const (
	categoriesTable termTable = "categories"
	genresTable     termTable = "genres"
)

func listTerms(ctx context.Context, q database.Querier, tbl termTable, search string, limit, offset int) ([]models.Category, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, "%"+database.EscapeLike(search)+"%")
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+string(tbl)+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", tbl, err)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, slug FROM `+string(tbl)+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", tbl, err)
	}
	defer rows.Close()

	res := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, 0, err
		}
		res = append(res, c)
	}
	return res, total, rows.Err()
}

// getTerm returns sql.ErrNoRows for an unknown slug.
func getTerm(ctx context.Context, q database.Querier, tbl termTable, slug string) (models.Category, error) {
	var c models.Category
	err := q.QueryRowContext(ctx, `SELECT id, name, slug FROM `+string(tbl)+` WHERE slug = ?`, slug).
		Scan(&c.ID, &c.Name, &c.Slug)
	return c, err
}

func createTerm(ctx context.Context, q database.Querier, tbl termTable, c *models.Category) error {
	res, err := q.ExecContext(ctx, `INSERT INTO `+string(tbl)+`(name, slug) VALUES(?,?)`, c.Name, c.Slug)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func deleteTerm(ctx context.Context, q database.Querier, tbl termTable, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM `+string(tbl)+` WHERE id = ?`, id)
	return err
}

func ListCategories(ctx context.Context, q database.Querier, search string, limit, offset int) ([]models.Category, int, error) {
	return listTerms(ctx, q, categoriesTable, search, limit, offset)
}

func ListGenres(ctx context.Context, q database.Querier, search string, limit, offset int) ([]models.Genre, int, error) {
	cs, total, err := listTerms(ctx, q, genresTable, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	gs := make([]models.Genre, len(cs))
	for i, c := range cs {
		gs[i] = models.Genre(c)
	}
	return gs, total, nil
}
