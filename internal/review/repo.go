package review

import (
	"context"
	"fmt"

	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

const reviewSelect = `SELECT r.id, r.title_id, t.name, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN titles t ON t.id = r.title_id
	JOIN users u ON u.id = r.author_id`

func scanReview(row interface{ Scan(...any) error }) (models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.TitleID, &r.Title, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate)
	return r, err
}

func listReviews(ctx context.Context, q database.Querier, titleID int64, limit, offset int) ([]models.Review, int, error) {
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	rows, err := q.QueryContext(ctx, reviewSelect+` WHERE r.title_id = ? ORDER BY r.id DESC LIMIT ? OFFSET ?`,
		titleID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	res := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, r)
	}
	return res, total, rows.Err()
}

// getReview returns sql.ErrNoRows unless review id belongs to titleID.
func getReview(ctx context.Context, q database.Querier, titleID, id int64) (models.Review, error) {
	return scanReview(q.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ? AND r.title_id = ?`, id, titleID))
}

func reviewExists(ctx context.Context, q database.Querier, titleID, authorID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE title_id = ? AND author_id = ?`,
		titleID, authorID).Scan(&n)
	return n > 0, err
}

func insertReview(ctx context.Context, q database.Querier, r *models.Review) error {
	res, err := q.ExecContext(ctx, `INSERT INTO reviews(title_id, author_id, text, score, pub_date) VALUES(?,?,?,?,?)`,
		r.TitleID, r.AuthorID, r.Text, r.Score, r.PubDate)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func updateReview(ctx context.Context, q database.Querier, r models.Review) error {
	_, err := q.ExecContext(ctx, `UPDATE reviews SET text = ?, score = ? WHERE id = ?`, r.Text, r.Score, r.ID)
	return err
}

func deleteReview(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	return err
}

const commentSelect = `SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row interface{ Scan(...any) error }) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate)
	return c, err
}

func listComments(ctx context.Context, q database.Querier, reviewID int64, limit, offset int) ([]models.Comment, int, error) {
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE review_id = ?`, reviewID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	rows, err := q.QueryContext(ctx, commentSelect+` WHERE c.review_id = ? ORDER BY c.id DESC LIMIT ? OFFSET ?`,
		reviewID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	res := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, c)
	}
	return res, total, rows.Err()
}

// getComment returns sql.ErrNoRows unless comment id belongs to reviewID.
func getComment(ctx context.Context, q database.Querier, reviewID, id int64) (models.Comment, error) {
	return scanComment(q.QueryRowContext(ctx, commentSelect+` WHERE c.id = ? AND c.review_id = ?`, id, reviewID))
}

func insertComment(ctx context.Context, q database.Querier, c *models.Comment) error {
	res, err := q.ExecContext(ctx, `INSERT INTO comments(review_id, author_id, text, pub_date) VALUES(?,?,?,?)`,
		c.ReviewID, c.AuthorID, c.Text, c.PubDate)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func updateComment(ctx context.Context, q database.Querier, c models.Comment) error {
	_, err := q.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, c.Text, c.ID)
	return err
}

func deleteComment(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	return err
}
