package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AgentLoad pairs an internal-team user with their live assignment count.
type AgentLoad struct {
	UserID string
	Open   int
}

// UserRepository defines persistence access for accounts in every role.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error)
	ListInternal(ctx context.Context) ([]domain.User, error)
	AgentLoads(ctx context.Context) ([]AgentLoad, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, password_hash, salt, role, tenant_id,
        is_active, must_change_password, last_login_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, name, password_hash, salt, role, tenant_id, is_active, must_change_password)
        VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Salt,
		user.Role,
		user.TenantID,
		user.IsActive,
		user.MustChangePassword,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=LOWER($1), name=$2, password_hash=$3, salt=$4, role=$5,
            tenant_id=$6, is_active=$7, must_change_password=$8, last_login_at=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.db.Exec(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Salt,
		user.Role,
		user.TenantID,
		user.IsActive,
		user.MustChangePassword,
		user.LastLoginAt,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=LOWER($1)`
	return r.fetchSingle(ctx, query, strings.TrimSpace(email))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Salt,
		&user.Role,
		&user.TenantID,
		&user.IsActive,
		&user.MustChangePassword,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 ORDER BY name`
	return r.list(ctx, query, tenantID)
}

func (r *userRepository) ListInternal(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE role IN ('super_admin','agent_admin','agent') ORDER BY name`
	return r.list(ctx, query)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.PasswordHash,
			&user.Salt,
			&user.Role,
			&user.TenantID,
			&user.IsActive,
			&user.MustChangePassword,
			&user.LastLoginAt,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

// AgentLoads returns active agents ordered by how many open or
// in-progress tickets they currently hold, least loaded first.
func (r *userRepository) AgentLoads(ctx context.Context) ([]AgentLoad, error) {
	const query = `
        SELECT u.id, COUNT(t.id) AS open_count
        FROM users u
        LEFT JOIN tickets t ON t.assigned_to = u.id AND t.status IN ('open','in_progress')
        WHERE u.role = 'agent' AND u.is_active = TRUE
        GROUP BY u.id
        ORDER BY open_count ASC, u.id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgentLoad
	for rows.Next() {
		var load AgentLoad
		if err := rows.Scan(&load.UserID, &load.Open); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}
