package user

import (
	"context"
	"fmt"
	"time"

	"yamdb/pkg/database"
	"yamdb/pkg/models"
)

const userColumns = `id, username, email, first_name, last_name, bio, role,
	is_superuser, password_hash, confirmation_code, date_joined`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Bio, &role,
		&u.IsSuperuser, &u.PasswordHash, &u.ConfirmationCode, &u.DateJoined)
	u.Role = models.Role(role)
	return u, err
}

// GetByUsername returns sql.ErrNoRows when no user matches.
func GetByUsername(ctx context.Context, q database.Querier, username string) (models.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func GetByEmail(ctx context.Context, q database.Querier, email string) (models.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func GetByID(ctx context.Context, q database.Querier, id int64) (models.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// List returns users newest first, optionally filtered by a username substring.
func List(ctx context.Context, q database.Querier, search string, limit, offset int) ([]models.User, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE username LIKE ? ESCAPE '\'`
		args = append(args, "%"+database.EscapeLike(search)+"%")
	}

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	res := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, u)
	}
	return res, total, rows.Err()
}

// Create inserts u and sets its ID. A zero DateJoined is set to now.
func Create(ctx context.Context, q database.Querier, u *models.User) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	res, err := q.ExecContext(ctx, `INSERT INTO users(username, email, first_name, last_name, bio, role,
		is_superuser, password_hash, confirmation_code, date_joined) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.FirstName, u.LastName, u.Bio, string(u.Role),
		u.IsSuperuser, u.PasswordHash, u.ConfirmationCode, u.DateJoined)
	if err != nil {
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// Update writes the profile fields, role and superuser flag of u.
func Update(ctx context.Context, q database.Querier, u models.User) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?,
		bio = ?, role = ?, is_superuser = ?, password_hash = ? WHERE id = ?`,
		u.Username, u.Email, u.FirstName, u.LastName, u.Bio, string(u.Role),
		u.IsSuperuser, u.PasswordHash, u.ID)
	return err
}

func SetConfirmationCode(ctx context.Context, q database.Querier, id int64, code string) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET confirmation_code = ? WHERE id = ?`, code, id)
	return err
}

func Delete(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}
