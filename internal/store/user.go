package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yelpcamp/apiserver/types"
)

const userColumns = `id, username, email, first_name, last_name, avatar, avatar_id, is_admin,
		password_hash, reset_token, reset_token_expires, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ResetToken = nil

	const query = `
		INSERT INTO users (username, email, first_name, last_name, avatar, avatar_id, is_admin,
			password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Avatar,
		user.AvatarID,
		user.IsAdmin,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// Update writes the profile fields of the user. Username, role, password and
// reset token state are left untouched.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET email = $1,
			first_name = $2,
			last_name = $3,
			avatar = $4,
			avatar_id = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Avatar,
		user.AvatarID,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// SetResetToken stores a pending reset on the user, replacing any earlier one.
func (r *UserRepository) SetResetToken(ctx context.Context, userID int, token types.ResetToken) error {
	const query = `
		UPDATE users
		SET reset_token = $1,
			reset_token_expires = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, token.Hash, token.ExpiresAt, time.Now(), userID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByResetToken returns the user holding tokenHash if it expires after now.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error) {
	const query = `SELECT ` + userColumns + `
		FROM users
		WHERE reset_token = $1 AND reset_token_expires > $2`
	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash, now))
}

// ConsumeResetToken sets passwordHash and clears the reset token in one
// conditional statement. Only the first caller presenting a still-valid
// tokenHash gets a row back; every other caller gets ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (types.User, error) {
	const query = `
		UPDATE users
		SET password_hash = $1,
			reset_token = NULL,
			reset_token_expires = NULL,
			updated_at = $2
		WHERE reset_token = $3 AND reset_token_expires > $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, passwordHash, time.Now(), tokenHash, now))
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var resetToken sql.NullString
	var resetExpires sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Avatar,
		&user.AvatarID,
		&user.IsAdmin,
		&user.PasswordHash,
		&resetToken,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if resetToken.Valid && resetExpires.Valid {
		user.ResetToken = &types.ResetToken{Hash: resetToken.String, ExpiresAt: resetExpires.Time}
	}
	return user, nil
}
