package user

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
	"yamdb/internal/auth"
	"yamdb/internal/mail"
	"yamdb/internal/validate"
	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

type Config struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	MailFrom  string
}

// Service owns signup, token exchange and user administration.
type Service struct {
	db     *sql.DB
	mailer mail.Sender
	codes  *auth.CodeGenerator
	cfg    Config
}

func NewService(db *sql.DB, mailer mail.Sender, cfg Config) *Service {
	return &Service{
		db:     db,
		mailer: mailer,
		codes:  auth.NewCodeGenerator(cfg.JWTSecret),
		cfg:    cfg,
	}
}

type SignupInput struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

type TokenInput struct {
	Username         string `json:"username" validate:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" validate:"required,max=24"`
}

// Input is the admin create/replace payload. Optional fields left nil keep
// their stored (or default) value.
type Input struct {
	Username  string       `json:"username" validate:"required,max=150,username,notme"`
	Email     string       `json:"email" validate:"required,max=254,email"`
	FirstName *string      `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string      `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string      `json:"bio"`
	Role      *models.Role `json:"role" validate:"omitempty,role"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Username  *string      `json:"username" validate:"omitempty,max=150,username,notme"`
	Email     *string      `json:"email" validate:"omitempty,max=254,email"`
	FirstName *string      `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string      `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string      `json:"bio"`
	Role      *models.Role `json:"role" validate:"omitempty,role"`
}

func (in Input) patch() Patch {
	return Patch{
		Username:  &in.Username,
		Email:     &in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
	}
}

func (p Patch) apply(u *models.User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// Signup registers username/email (or reuses the matching existing user),
// stores a fresh confirmation code and emails it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (SignupInput, error) {
	if err := validate.Struct(in); err != nil {
		return SignupInput{}, err
	}

	u, err := GetByUsername(ctx, s.db, in.Username)
	switch {
	case err == nil:
		if u.Email != in.Email {
			return SignupInput{}, apperr.FieldError("username", "A user with that username already exists.")
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := GetByEmail(ctx, s.db, in.Email); err == nil {
			return SignupInput{}, apperr.FieldError("email", "A user with that email already exists.")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return SignupInput{}, fmt.Errorf("lookup email: %w", err)
		}
		u = models.User{Username: in.Username, Email: in.Email, Role: models.RoleUser}
		if err := Create(ctx, s.db, &u); err != nil {
			return SignupInput{}, uniqueError(err)
		}
	default:
		return SignupInput{}, fmt.Errorf("lookup username: %w", err)
	}

	code, err := s.codes.Generate(u.ID, u.Username, u.Email)
	if err != nil {
		return SignupInput{}, err
	}
	if err := SetConfirmationCode(ctx, s.db, u.ID, code); err != nil {
		return SignupInput{}, fmt.Errorf("store confirmation code: %w", err)
	}
	if err := s.mailer.Send(ctx, mail.ConfirmationCode(s.cfg.MailFrom, u.Email, code)); err != nil {
		return SignupInput{}, apperr.Unavailable("could not send confirmation code", err)
	}
	zerolog.Ctx(ctx).Info().Str("username", u.Username).Msg("confirmation code sent")
	return SignupInput{Username: u.Username, Email: u.Email}, nil
}

// ObtainToken exchanges a confirmation code for an access token.
func (s *Service) ObtainToken(ctx context.Context, in TokenInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	u, err := GetByUsername(ctx, s.db, in.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("user")
	}
	if err != nil {
		return "", fmt.Errorf("lookup username: %w", err)
	}
	if u.ConfirmationCode == "" ||
		subtle.ConstantTimeCompare([]byte(u.ConfirmationCode), []byte(in.ConfirmationCode)) != 1 {
		return "", apperr.FieldError("confirmation_code", "invalid confirmation code")
	}
	return auth.SignJWT(s.cfg.JWTSecret, u.ID, u.Username, s.cfg.TokenTTL)
}

// Requester loads the current role and superuser flag of userID.
func (s *Service) Requester(ctx context.Context, userID int64) (access.Requester, error) {
	u, err := GetByID(ctx, s.db, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Requester{}, apperr.NotFound("user")
	}
	if err != nil {
		return access.Requester{}, err
	}
	return access.Requester{UserID: u.ID, Username: u.Username, Role: u.Role, IsSuperuser: u.IsSuperuser}, nil
}

func (s *Service) Me(ctx context.Context, req access.Request) (models.User, error) {
	if err := access.Check(access.Authenticated{}, req); err != nil {
		return models.User{}, err
	}
	return s.byID(ctx, req.Requester.UserID)
}

// UpdateMe applies p to the requester's own profile. Role changes are ignored.
func (s *Service) UpdateMe(ctx context.Context, req access.Request, p Patch) (models.User, error) {
	if err := access.Check(access.Authenticated{}, req); err != nil {
		return models.User{}, err
	}
	p.Role = nil
	if err := validate.Struct(p); err != nil {
		return models.User{}, err
	}
	u, err := s.byID(ctx, req.Requester.UserID)
	if err != nil {
		return models.User{}, err
	}
	return s.save(ctx, u, p)
}

func (s *Service) List(ctx context.Context, req access.Request, search string, limit, offset int) ([]models.User, int, error) {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return nil, 0, err
	}
	return List(ctx, s.db, search, limit, offset)
}

func (s *Service) Create(ctx context.Context, req access.Request, in Input) (models.User, error) {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return models.User{}, err
	}
	if err := validate.Struct(in); err != nil {
		return models.User{}, err
	}
	var u models.User
	in.patch().apply(&u)
	if err := s.checkTaken(ctx, u, 0); err != nil {
		return models.User{}, err
	}
	if err := Create(ctx, s.db, &u); err != nil {
		return models.User{}, uniqueError(err)
	}
	zerolog.Ctx(ctx).Info().Str("username", u.Username).Str("by", req.Requester.Username).Msg("user created")
	return u, nil
}

func (s *Service) Get(ctx context.Context, req access.Request, username string) (models.User, error) {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return models.User{}, err
	}
	return s.byUsername(ctx, username)
}

// Update replaces the user's required fields and any optional field present in in.
func (s *Service) Update(ctx context.Context, req access.Request, username string, in Input) (models.User, error) {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return models.User{}, err
	}
	if err := validate.Struct(in); err != nil {
		return models.User{}, err
	}
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	return s.save(ctx, u, in.patch())
}

func (s *Service) PartialUpdate(ctx context.Context, req access.Request, username string, p Patch) (models.User, error) {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return models.User{}, err
	}
	if err := validate.Struct(p); err != nil {
		return models.User{}, err
	}
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	return s.save(ctx, u, p)
}

func (s *Service) Delete(ctx context.Context, req access.Request, username string) error {
	if err := access.Check(access.AdminRole{}, req); err != nil {
		return err
	}
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := Delete(ctx, s.db, u.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("username", u.Username).Str("by", req.Requester.Username).Msg("user deleted")
	return nil
}

// CreateSuperuser creates username as a superuser admin, or promotes the
// existing user of that name. A non-empty password is stored as a bcrypt hash.
func (s *Service) CreateSuperuser(ctx context.Context, username, email, password string) (models.User, error) {
	if err := validate.Struct(SignupInput{Username: username, Email: email}); err != nil {
		return models.User{}, err
	}
	var hash string
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		hash = string(b)
	}

	u, err := GetByUsername(ctx, s.db, username)
	switch {
	case err == nil:
		u.IsSuperuser = true
		u.Role = models.RoleAdmin
		if hash != "" {
			u.PasswordHash = hash
		}
		if err := Update(ctx, s.db, u); err != nil {
			return models.User{}, uniqueError(err)
		}
	case errors.Is(err, sql.ErrNoRows):
		u = models.User{
			Username:     username,
			Email:        email,
			Role:         models.RoleAdmin,
			IsSuperuser:  true,
			PasswordHash: hash,
		}
		if err := Create(ctx, s.db, &u); err != nil {
			return models.User{}, uniqueError(err)
		}
	default:
		return models.User{}, err
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, u models.User, p Patch) (models.User, error) {
	p.apply(&u)
	if err := s.checkTaken(ctx, u, u.ID); err != nil {
		return models.User{}, err
	}
	if err := Update(ctx, s.db, u); err != nil {
		return models.User{}, uniqueError(err)
	}
	return u, nil
}

// checkTaken reports a field error when u's username or email belongs to a
// user other than self.
func (s *Service) checkTaken(ctx context.Context, u models.User, self int64) error {
	if other, err := GetByUsername(ctx, s.db, u.Username); err == nil && other.ID != self {
		return apperr.FieldError("username", "A user with that username already exists.")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if other, err := GetByEmail(ctx, s.db, u.Email); err == nil && other.ID != self {
		return apperr.FieldError("email", "A user with that email already exists.")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

func (s *Service) byID(ctx context.Context, id int64) (models.User, error) {
	u, err := GetByID(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

func (s *Service) byUsername(ctx context.Context, username string) (models.User, error) {
	u, err := GetByUsername(ctx, s.db, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

// uniqueError turns a users UNIQUE violation into a conflict on the
// offending field.
func uniqueError(err error) error {
	if !database.IsUniqueViolation(err) {
		return err
	}
	field := "username"
	if strings.Contains(err.Error(), "users.email") {
		field = "email"
	}
	msg := fmt.Sprintf("A user with that %s already exists.", field)
	return apperr.Conflict(field, msg, err)
}
