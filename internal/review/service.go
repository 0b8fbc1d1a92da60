// Package review serves reviews of titles and the comments on them. Anyone
// may read; authenticated users write; only the author or staff may change
// or remove an existing entry.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
	"yamdb/internal/catalog"
	"yamdb/internal/validate"
	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

const msgAlreadyReviewed = "You already reviewed this title!"

type Service struct {
	db     *sql.DB
	policy access.ObjectPolicy
	now    func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, policy: access.OwnerOrStaffOrReadOnly{}, now: time.Now}
}

type ReviewInput struct {
	Text  string `json:"text" validate:"required,max=255"`
	Score *int   `json:"score" validate:"required,min=1,max=10"`
}

type ReviewPatch struct {
	Text  *string `json:"text" validate:"omitempty,min=1,max=255"`
	Score *int    `json:"score" validate:"omitempty,min=1,max=10"`
}

type CommentInput struct {
	Text string `json:"text" validate:"required,max=255"`
}

type CommentPatch struct {
	Text *string `json:"text" validate:"omitempty,min=1,max=255"`
}

func (s *Service) ListReviews(ctx context.Context, titleID int64, limit, offset int) ([]models.Review, int, error) {
	if _, err := s.titleName(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return listReviews(ctx, s.db, titleID, limit, offset)
}

func (s *Service) GetReview(ctx context.Context, titleID, reviewID int64) (models.Review, error) {
	r, err := getReview(ctx, s.db, titleID, reviewID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Review{}, apperr.NotFound("review")
	}
	return r, err
}

// CreateReview adds the requester's review of titleID. A second review of the
// same title by the same author is rejected.
func (s *Service) CreateReview(ctx context.Context, req access.Request, titleID int64, in ReviewInput) (models.Review, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Review{}, err
	}
	name, err := s.titleName(ctx, titleID)
	if err != nil {
		return models.Review{}, err
	}
	if err := validate.Struct(in); err != nil {
		return models.Review{}, err
	}
	exists, err := reviewExists(ctx, s.db, titleID, req.Requester.UserID)
	if err != nil {
		return models.Review{}, fmt.Errorf("check review: %w", err)
	}
	if exists {
		return models.Review{}, apperr.Validation(msgAlreadyReviewed)
	}

	r := models.Review{
		TitleID:  titleID,
		Title:    name,
		AuthorID: req.Requester.UserID,
		Author:   req.Requester.Username,
		Text:     in.Text,
		Score:    *in.Score,
		PubDate:  s.now().UTC(),
	}
	if err := insertReview(ctx, s.db, &r); err != nil {
		return models.Review{}, insertError(err)
	}
	zerolog.Ctx(ctx).Info().Int64("title_id", titleID).Int64("review_id", r.ID).Msg("review created")
	return r, nil
}

// insertError translates constraint failures raised by the reviews table. A
// unique violation is a lost race on the one-review-per-author rule and is
// reported the same way as the pre-check; a foreign key failure means the
// title was deleted in the meantime.
func insertError(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return &apperr.Error{Kind: apperr.KindValidation, Message: msgAlreadyReviewed, Err: err}
	case database.IsCheckViolation(err):
		e := apperr.FieldError("score", "Ensure this value is between 1 and 10.")
		e.Err = err
		return e
	case database.IsForeignKeyViolation(err):
		return apperr.NotFound("title")
	}
	return fmt.Errorf("insert review: %w", err)
}

func (s *Service) UpdateReview(ctx context.Context, req access.Request, titleID, reviewID int64, in ReviewInput) (models.Review, error) {
	text, score := in.Text, in.Score
	return s.changeReview(ctx, req, titleID, reviewID, func() error { return validate.Struct(in) }, &text, score)
}

func (s *Service) PartialUpdateReview(ctx context.Context, req access.Request, titleID, reviewID int64, p ReviewPatch) (models.Review, error) {
	return s.changeReview(ctx, req, titleID, reviewID, func() error { return validate.Struct(p) }, p.Text, p.Score)
}

func (s *Service) changeReview(ctx context.Context, req access.Request, titleID, reviewID int64,
	check func() error, text *string, score *int) (models.Review, error) {
	r, err := s.loadReview(ctx, req, titleID, reviewID)
	if err != nil {
		return models.Review{}, err
	}
	if err := check(); err != nil {
		return models.Review{}, err
	}
	if text != nil {
		r.Text = *text
	}
	if score != nil {
		r.Score = *score
	}
	if err := updateReview(ctx, s.db, r); err != nil {
		return models.Review{}, fmt.Errorf("update review: %w", err)
	}
	return r, nil
}

func (s *Service) DeleteReview(ctx context.Context, req access.Request, titleID, reviewID int64) error {
	r, err := s.loadReview(ctx, req, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := deleteReview(ctx, s.db, r.ID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("review_id", r.ID).Str("by", req.Requester.Username).Msg("review deleted")
	return nil
}

// loadReview runs both policy stages around the lookup of the target review.
func (s *Service) loadReview(ctx context.Context, req access.Request, titleID, reviewID int64) (models.Review, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Review{}, err
	}
	r, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return models.Review{}, err
	}
	if err := access.CheckObject(s.policy, req, r); err != nil {
		return models.Review{}, err
	}
	return r, nil
}

func (s *Service) ListComments(ctx context.Context, titleID, reviewID int64, limit, offset int) ([]models.Comment, int, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return listComments(ctx, s.db, reviewID, limit, offset)
}

func (s *Service) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (models.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return models.Comment{}, err
	}
	c, err := getComment(ctx, s.db, reviewID, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, apperr.NotFound("comment")
	}
	return c, err
}

func (s *Service) CreateComment(ctx context.Context, req access.Request, titleID, reviewID int64, in CommentInput) (models.Comment, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Comment{}, err
	}
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return models.Comment{}, err
	}
	if err := validate.Struct(in); err != nil {
		return models.Comment{}, err
	}
	c := models.Comment{
		ReviewID: reviewID,
		AuthorID: req.Requester.UserID,
		Author:   req.Requester.Username,
		Text:     in.Text,
		PubDate:  s.now().UTC(),
	}
	if err := insertComment(ctx, s.db, &c); err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, req access.Request, titleID, reviewID, commentID int64, in CommentInput) (models.Comment, error) {
	text := in.Text
	return s.changeComment(ctx, req, titleID, reviewID, commentID, func() error { return validate.Struct(in) }, &text)
}

func (s *Service) PartialUpdateComment(ctx context.Context, req access.Request, titleID, reviewID, commentID int64, p CommentPatch) (models.Comment, error) {
	return s.changeComment(ctx, req, titleID, reviewID, commentID, func() error { return validate.Struct(p) }, p.Text)
}

func (s *Service) changeComment(ctx context.Context, req access.Request, titleID, reviewID, commentID int64,
	check func() error, text *string) (models.Comment, error) {
	c, err := s.loadComment(ctx, req, titleID, reviewID, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	if err := check(); err != nil {
		return models.Comment{}, err
	}
	if text != nil {
		c.Text = *text
	}
	if err := updateComment(ctx, s.db, c); err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteComment(ctx context.Context, req access.Request, titleID, reviewID, commentID int64) error {
	c, err := s.loadComment(ctx, req, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := deleteComment(ctx, s.db, c.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("comment_id", c.ID).Str("by", req.Requester.Username).Msg("comment deleted")
	return nil
}

func (s *Service) loadComment(ctx context.Context, req access.Request, titleID, reviewID, commentID int64) (models.Comment, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Comment{}, err
	}
	c, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	if err := access.CheckObject(s.policy, req, c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

func (s *Service) titleName(ctx context.Context, titleID int64) (string, error) {
	name, err := catalog.TitleName(ctx, s.db, titleID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("title")
	}
	return name, err
}
