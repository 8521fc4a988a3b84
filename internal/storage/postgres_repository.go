package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediareview/internal/auth"
	"mediareview/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migration.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ApplicationName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &postgresRepository{pool: pool, cfg: cfg}
	if err := repo.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the connection pool resources.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) acquireCtx() (context.Context, context.CancelFunc) {
	if r.cfg.AcquireTimeout > 0 {
		return context.WithTimeout(context.Background(), r.cfg.AcquireTimeout)
	}
	return context.Background(), func() {}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

const userColumns = "id, username, full_name, email, password_hash, is_admin, created_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.UserName, &user.FullName, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	return user, err
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.UserName)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if len(params.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           newID(),
		UserName:     username,
		FullName:     strings.TrimSpace(params.FullName),
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: hashed,
		IsAdmin:      strings.EqualFold(username, "admin"),
		CreatedAt:    r.cfg.Clock(),
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
INSERT INTO users (id, username, full_name, email, password_hash, is_admin, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, user.ID, user.UserName, user.FullName, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("username %s is taken", username)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) GetUserByName(username string) (models.User, bool) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) ListUsers() []models.User {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil
		}
		users = append(users, user)
	}
	return users
}

func (r *postgresRepository) SetUserAdmin(username string, admin bool) (models.User, error) {
	ctx, cancel := r.acquireCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET is_admin = $2 WHERE LOWER(username) = LOWER($1)
RETURNING `+userColumns, username, admin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) SetUserPassword(id, password string) (models.User, error) {
	if len(password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	ctx, cancel := r.acquireCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET password_hash = $2 WHERE id = $1
RETURNING `+userColumns, id, hashed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(username, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	user, ok := r.GetUserByName(username)
	if !ok || user.PasswordHash == "" {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) VerifyCredentials(username, password string) (auth.Identity, bool) {
	user, err := r.AuthenticateUser(username, password)
	if err != nil {
		return auth.Identity{}, false
	}
	return auth.Identity{UserName: user.UserName, IsAdmin: user.IsAdmin}, true
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
