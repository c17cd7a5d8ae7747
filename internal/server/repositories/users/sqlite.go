package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const sqliteUserColumns = `id, email, password_hash, refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

// SQLiteRepository implements Repository on SQLite. Timestamps are stored as
// unix milliseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + sqliteUserColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	hash, exp := sqliteRefreshColumns(user)
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, hash, exp, toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepository) GetUserByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE refresh_token_hash = ?`, hash)
}

func (r *SQLiteRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users
		SET email = ?, password_hash = ?, refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ?`

	hash, exp := sqliteRefreshColumns(user)
	res, err := r.db.ExecContext(ctx, query,
		user.Email, user.PasswordHash, hash, exp, toMillis(user.UpdatedAt), user.ID)
	return r.checkOne(res, err)
}

func (r *SQLiteRepository) SwapRefreshToken(ctx context.Context, user *models.User, oldHash string) error {
	query := `UPDATE users
		SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = ?
		WHERE id = ? AND refresh_token_hash = ?`

	hash, exp := sqliteRefreshColumns(user)
	res, err := r.db.ExecContext(ctx, query, hash, exp, toMillis(user.UpdatedAt), user.ID, oldHash)
	return r.checkOne(res, err)
}

func (r *SQLiteRepository) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	query := `UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = ?
		WHERE refresh_token_hash = ?`

	res, err := r.db.ExecContext(ctx, query, toMillis(now), hash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u                models.User
		hash             sql.NullString
		exp              sql.NullInt64
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &hash, &exp, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	if hash.Valid && exp.Valid {
		u.SetRefreshToken(hash.String, fromMillis(exp.Int64))
	}
	return &u, nil
}

func (r *SQLiteRepository) checkOne(res sql.Result, err error) error {
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func sqliteRefreshColumns(u *models.User) (sql.NullString, sql.NullInt64) {
	if !u.HasRefreshToken() {
		return sql.NullString{}, sql.NullInt64{}
	}
	return nullString(u.RefreshTokenHash), sql.NullInt64{Int64: toMillis(u.RefreshTokenExpiresAt), Valid: true}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
