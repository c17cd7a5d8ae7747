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
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const pgUserColumns = `id, email, password_hash, refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

// PostgresRepository implements Repository over a DBTX bound to a pgx
// connection pool or transaction.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (id, email, password_hash, refresh_token_hash, refresh_token_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	hash, exp := refreshColumns(user)
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, hash, exp, user.CreatedAt.UTC(), user.UpdatedAt.UTC())

	if err != nil {
		if isPgUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetUserByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+pgUserColumns+` FROM users WHERE refresh_token_hash = $1`, hash)
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET email = $2, password_hash = $3, refresh_token_hash = $4, refresh_token_expires_at = $5, updated_at = $6
		 WHERE id = $1
		 `

	hash, exp := refreshColumns(user)
	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, hash, exp, user.UpdatedAt.UTC())

	return r.checkOne(res, err)
}

func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, user *models.User, oldHash string) error {
	query :=
		`UPDATE users
		 SET refresh_token_hash = $3, refresh_token_expires_at = $4, updated_at = $5
		 WHERE id = $1 AND refresh_token_hash = $2
		 `

	hash, exp := refreshColumns(user)
	res, err := r.db.ExecContext(ctx, query, user.ID, oldHash, hash, exp, user.UpdatedAt.UTC())

	return r.checkOne(res, err)
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	query :=
		`UPDATE users
		 SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = $2
		 WHERE refresh_token_hash = $1
		 `

	res, err := r.db.ExecContext(ctx, query, hash, now.UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanPgUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) checkOne(res sql.Result, err error) error {
	if err != nil {
		if isPgUniqueViolation(err) {
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

func scanPgUser(row rowScanner) (*models.User, error) {
	var (
		u    models.User
		hash sql.NullString
		exp  sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &hash, &exp, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if hash.Valid && exp.Valid {
		u.SetRefreshToken(hash.String, exp.Time)
	}
	return &u, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
