package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TenantRepository encapsulates tenant and tenant-domain persistence.
// Domains live in their own table with a uniqueness constraint, so a
// domain resolves to its tenant by point lookup.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	Update(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
	FindActiveByDomain(ctx context.Context, emailDomain string) (*domain.Tenant, error)
	DomainOwner(ctx context.Context, emailDomain string) (*string, error)
	AddDomain(ctx context.Context, tenantID, emailDomain string) error
	RemoveDomain(ctx context.Context, tenantID, emailDomain string) error
	ListDomains(ctx context.Context, tenantID string) ([]domain.TenantDomain, error)
}

type tenantRepository struct {
	db DB
}

// NewTenantRepository instantiates repository.
func NewTenantRepository(db DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name, slug, is_active)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		tenant.Name,
		tenant.Slug,
		tenant.IsActive,
	).Scan(&tenant.ID, &tenant.CreatedAt)
}

func (r *tenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        UPDATE tenants SET name=$1, slug=$2, is_active=$3
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query,
		tenant.Name,
		tenant.Slug,
		tenant.IsActive,
		tenant.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, slug, is_active, created_at
        FROM tenants WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, slug, is_active, created_at
        FROM tenants WHERE slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *tenantRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.IsActive,
		&tenant.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	const query = `
        SELECT id, name, slug, is_active, created_at
        FROM tenants ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.Slug,
			&tenant.IsActive,
			&tenant.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tenant)
	}
	return result, rows.Err()
}

func (r *tenantRepository) FindActiveByDomain(ctx context.Context, emailDomain string) (*domain.Tenant, error) {
	const query = `
        SELECT t.id, t.name, t.slug, t.is_active, t.created_at
        FROM tenants t
        JOIN tenant_domains d ON d.tenant_id = t.id
        WHERE d.domain = $1 AND t.is_active = TRUE`
	return r.fetchSingle(ctx, query, strings.ToLower(emailDomain))
}

func (r *tenantRepository) DomainOwner(ctx context.Context, emailDomain string) (*string, error) {
	const query = `SELECT tenant_id FROM tenant_domains WHERE domain=$1`
	var tenantID string
	err := r.db.QueryRow(ctx, query, strings.ToLower(emailDomain)).Scan(&tenantID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &tenantID, nil
}

func (r *tenantRepository) AddDomain(ctx context.Context, tenantID, emailDomain string) error {
	const query = `
        INSERT INTO tenant_domains (tenant_id, domain)
        VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, tenantID, strings.ToLower(emailDomain))
	return err
}

func (r *tenantRepository) RemoveDomain(ctx context.Context, tenantID, emailDomain string) error {
	const query = `DELETE FROM tenant_domains WHERE tenant_id=$1 AND domain=$2`
	cmd, err := r.db.Exec(ctx, query, tenantID, strings.ToLower(emailDomain))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tenantRepository) ListDomains(ctx context.Context, tenantID string) ([]domain.TenantDomain, error) {
	const query = `
        SELECT id, tenant_id, domain, created_at
        FROM tenant_domains WHERE tenant_id=$1 ORDER BY domain`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TenantDomain
	for rows.Next() {
		var td domain.TenantDomain
		if err := rows.Scan(&td.ID, &td.TenantID, &td.Domain, &td.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, td)
	}
	return result, rows.Err()
}
