// Package users provides the PostgreSQL-backed account repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/questkeeper/internal/common"
	"github.com/dmitrijs2005/questkeeper/internal/dbx"
	"github.com/dmitrijs2005/questkeeper/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const selectColumns = `SELECT id, email, name, hashed_password, token, temp_token,
		activation_code, is_active, is_admin FROM users`

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account and fills in its ID. A clash on the unique
// email column is reported as common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, name, hashed_password, token, temp_token, activation_code, is_active, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.HashedPassword, nullString(user.Token), nullString(user.TempToken),
		user.ActivationCode, user.IsActive, user.IsAdmin).Scan(&user.ID)

	if err != nil {
		return nil, wrapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectColumns+` WHERE email = $1`, email)
}

// GetByToken looks a user up by session token. An empty token never matches.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, selectColumns+` WHERE token = $1`, token)
}

// GetByTempToken looks a user up by handshake token. An empty token never matches.
func (r *PostgresRepository) GetByTempToken(ctx context.Context, tempToken string) (*models.User, error) {
	if tempToken == "" {
		return nil, common.ErrorNotFound
	}
	return r.getOne(ctx, selectColumns+` WHERE temp_token = $1`, tempToken)
}

// Update writes every mutable column of the user. Empty Token and TempToken
// are stored as NULL.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET email = $2, name = $3, hashed_password = $4, token = $5,
		 temp_token = $6, activation_code = $7, is_active = $8
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.HashedPassword, nullString(user.Token),
		nullString(user.TempToken), user.ActivationCode, user.IsActive)
	if err != nil {
		return wrapError(err)
	}

	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

// LockByID takes a row lock on the user for the rest of the surrounding
// transaction. Outside a transaction the lock is released immediately.
func (r *PostgresRepository) LockByID(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user      models.User
		token     sql.NullString
		tempToken sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.HashedPassword, &token, &tempToken,
		&user.ActivationCode, &user.IsActive, &user.IsAdmin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Token = token.String
	user.TempToken = tempToken.String

	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func wrapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
