package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
	"yamdb/internal/validate"
	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

// Service serves categories, genres and titles. Reads are public; writes
// require an admin or superuser.
type Service struct {
	db     *sql.DB
	policy access.Policy
	now    func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, policy: access.AdminOrReadOnly{}, now: time.Now}
}

type TermInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// TitleInput is the create/replace payload. Category and genres are given by
// slug; a nil Category or Genre clears them.
type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Year        *int     `json:"year" validate:"required"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Genre       []string `json:"genre" validate:"omitempty,dive,max=50"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`

	nulls []string
}

func (in *TitleInput) UnmarshalJSON(data []byte) error {
	type plain TitleInput
	if err := json.Unmarshal(data, (*plain)(in)); err != nil {
		return err
	}
	in.nulls = explicitNulls(data)
	return nil
}

// TitlePatch is a partial update. A nil Genre leaves links untouched; an
// empty non-nil Genre removes them all.
type TitlePatch struct {
	Name        *string  `json:"name" validate:"omitempty,max=150"`
	Year        *int     `json:"year"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Genre       []string `json:"genre" validate:"omitempty,dive,max=50"`
	Category    *string  `json:"category" validate:"omitempty,max=50"`

	nulls []string
}

func (p *TitlePatch) UnmarshalJSON(data []byte) error {
	type plain TitlePatch
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	p.nulls = explicitNulls(data)
	return nil
}

// nonNullTitleFields may be omitted but never sent as null.
var nonNullTitleFields = []string{"name", "year", "category", "genre"}

// explicitNulls lists the fields of a JSON object body that are literally null.
func explicitNulls(data []byte) []string {
	var raw map[string]json.RawMessage
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	var out []string
	for _, f := range nonNullTitleFields {
		if v, ok := raw[f]; ok && string(v) == "null" {
			out = append(out, f)
		}
	}
	return out
}

func nullError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	const msg = "This field may not be null."
	e := apperr.Validation(msg)
	e.Fields = make(map[string][]string, len(fields))
	for _, f := range fields {
		e.Fields[f] = []string{msg}
	}
	return e
}

// ParseTitleFilter builds a TitleFilter from raw query values.
func ParseTitleFilter(name, genre, category, year string) (TitleFilter, error) {
	f := TitleFilter{Name: name, Genre: genre, Category: category}
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return TitleFilter{}, apperr.FieldError("year", "Enter a number.")
		}
		f.Year = &y
	}
	return f, nil
}

func (s *Service) ListCategories(ctx context.Context, search string, limit, offset int) ([]models.Category, int, error) {
	return ListCategories(ctx, s.db, search, limit, offset)
}

func (s *Service) CreateCategory(ctx context.Context, req access.Request, in TermInput) (models.Category, error) {
	return s.createTerm(ctx, req, categoriesTable, in)
}

func (s *Service) DeleteCategory(ctx context.Context, req access.Request, slug string) error {
	return s.deleteTerm(ctx, req, categoriesTable, slug)
}

func (s *Service) ListGenres(ctx context.Context, search string, limit, offset int) ([]models.Genre, int, error) {
	return ListGenres(ctx, s.db, search, limit, offset)
}

func (s *Service) CreateGenre(ctx context.Context, req access.Request, in TermInput) (models.Genre, error) {
	c, err := s.createTerm(ctx, req, genresTable, in)
	return models.Genre(c), err
}

func (s *Service) DeleteGenre(ctx context.Context, req access.Request, slug string) error {
	return s.deleteTerm(ctx, req, genresTable, slug)
}

func (s *Service) createTerm(ctx context.Context, req access.Request, tbl termTable, in TermInput) (models.Category, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Category{}, err
	}
	if err := validate.Struct(in); err != nil {
		return models.Category{}, err
	}
	c := models.Category{Name: in.Name, Slug: in.Slug}
	if err := createTerm(ctx, s.db, tbl, &c); err != nil {
		if database.IsUniqueViolation(err) {
			msg := fmt.Sprintf("%s with this slug already exists.", tbl.singular())
			return models.Category{}, apperr.Conflict("slug", msg, err)
		}
		return models.Category{}, fmt.Errorf("create %s: %w", tbl.singular(), err)
	}
	zerolog.Ctx(ctx).Info().Str("slug", c.Slug).Msgf("%s created", tbl.singular())
	return c, nil
}

func (s *Service) deleteTerm(ctx context.Context, req access.Request, tbl termTable, slug string) error {
	if err := access.Check(s.policy, req); err != nil {
		return err
	}
	c, err := getTerm(ctx, s.db, tbl, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(tbl.singular())
	}
	if err != nil {
		return err
	}
	if err := deleteTerm(ctx, s.db, tbl, c.ID); err != nil {
		return fmt.Errorf("delete %s: %w", tbl.singular(), err)
	}
	zerolog.Ctx(ctx).Info().Str("slug", slug).Msgf("%s deleted", tbl.singular())
	return nil
}

func (t termTable) singular() string {
	if t == genresTable {
		return "genre"
	}
	return "category"
}

func (s *Service) ListTitles(ctx context.Context, f TitleFilter, limit, offset int) ([]models.Title, int, error) {
	return ListTitles(ctx, s.db, f, limit, offset)
}

func (s *Service) GetTitle(ctx context.Context, id int64) (models.Title, error) {
	t, err := GetTitle(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Title{}, apperr.NotFound("title")
	}
	return t, err
}

func (s *Service) CreateTitle(ctx context.Context, req access.Request, in TitleInput) (models.Title, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Title{}, err
	}
	if err := s.validateTitle(in); err != nil {
		return models.Title{}, err
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r := titleRow{Name: in.Name, Year: *in.Year, Description: in.Description}
		if err := resolve(ctx, tx, &r, in.Category, in.Genre, true); err != nil {
			return err
		}
		if err := insertTitle(ctx, tx, &r); err != nil {
			return err
		}
		id = r.ID
		return nil
	})
	if err != nil {
		return models.Title{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("title_id", id).Msg("title created")
	return s.GetTitle(ctx, id)
}

// UpdateTitle replaces every writable field of title id.
func (s *Service) UpdateTitle(ctx context.Context, req access.Request, id int64, in TitleInput) (models.Title, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Title{}, err
	}
	if _, err := s.GetTitle(ctx, id); err != nil {
		return models.Title{}, err
	}
	if err := s.validateTitle(in); err != nil {
		return models.Title{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		r := titleRow{ID: id, Name: in.Name, Year: *in.Year, Description: in.Description}
		if err := resolve(ctx, tx, &r, in.Category, in.Genre, true); err != nil {
			return err
		}
		return updateTitle(ctx, tx, r)
	})
	if err != nil {
		return models.Title{}, err
	}
	return s.GetTitle(ctx, id)
}

func (s *Service) PartialUpdateTitle(ctx context.Context, req access.Request, id int64, p TitlePatch) (models.Title, error) {
	if err := access.Check(s.policy, req); err != nil {
		return models.Title{}, err
	}
	cur, err := s.GetTitle(ctx, id)
	if err != nil {
		return models.Title{}, err
	}
	if err := nullError(p.nulls); err != nil {
		return models.Title{}, err
	}
	if err := validate.Struct(p); err != nil {
		return models.Title{}, err
	}
	if p.Year != nil {
		if err := s.checkYear(*p.Year); err != nil {
			return models.Title{}, err
		}
	}

	r := rowOf(cur)
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Year != nil {
		r.Year = *p.Year
	}
	if p.Description != nil {
		r.Description = p.Description
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := resolve(ctx, tx, &r, p.Category, p.Genre, false); err != nil {
			return err
		}
		return updateTitle(ctx, tx, r)
	})
	if err != nil {
		return models.Title{}, err
	}
	return s.GetTitle(ctx, id)
}

func (s *Service) DeleteTitle(ctx context.Context, req access.Request, id int64) error {
	if err := access.Check(s.policy, req); err != nil {
		return err
	}
	if _, err := TitleName(ctx, s.db, id); errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("title")
	} else if err != nil {
		return err
	}
	if err := deleteTitle(ctx, s.db, id); err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("title_id", id).Msg("title deleted")
	return nil
}

func (s *Service) validateTitle(in TitleInput) error {
	if err := nullError(in.nulls); err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	return s.checkYear(*in.Year)
}

func (s *Service) checkYear(year int) error {
	if year > s.now().Year() {
		return apperr.FieldError("year", fmt.Sprintf("%d is not correct", year))
	}
	return nil
}

// resolve maps category and genre slugs to ids on r. Nil inputs leave r
// unchanged unless full is set, in which case they clear the field.
func resolve(ctx context.Context, q database.Querier, r *titleRow, category *string, genres []string, full bool) error {
	if category != nil {
		c, err := getTerm(ctx, q, categoriesTable, *category)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.FieldError("category", fmt.Sprintf("Object with slug=%s does not exist.", *category))
		}
		if err != nil {
			return err
		}
		r.CategoryID = &c.ID
	} else if full {
		r.CategoryID = nil
	}

	if genres != nil || full {
		r.GenreIDs = nil
	}
	for _, slug := range genres {
		g, err := getTerm(ctx, q, genresTable, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.FieldError("genre", fmt.Sprintf("Object with slug=%s does not exist.", slug))
		}
		if err != nil {
			return err
		}
		r.GenreIDs = append(r.GenreIDs, g.ID)
	}
	return nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
