package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ayush/event-registration/backend/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, password, role, provider, provider_id, created_at, updated_at`

// PostgresStore handles user CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, email, password, role, provider, provider_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+userColumns,
		u.FirstName, u.LastName, u.Email, u.Password, u.Role, u.Provider, u.ProviderID,
	)
	out, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", mapPgError(err))
	}
	return out, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	out, err := scanUser(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	out, err := scanUser(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites every mutable column of the row identified by u.ID.
func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return nil, models.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE users
		 SET first_name = $2, last_name = $3, email = $4, password = $5, role = $6,
		     provider = $7, provider_id = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		u.ID, u.FirstName, u.LastName, u.Email, u.Password, u.Role, u.Provider, u.ProviderID,
	)
	out, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", mapPgError(err))
	}
	return out, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUserByEmail(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password,
		&u.Role, &u.Provider, &u.ProviderID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.ErrEmailTaken
	}
	return err
}
