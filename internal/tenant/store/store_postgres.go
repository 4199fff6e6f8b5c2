package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"skdm/internal/tenant/models"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/platform/tx"
)

// PostgresTenantStore persists tenants in PostgreSQL.
type PostgresTenantStore struct {
	db *sql.DB
}

func NewPostgresTenantStore(db *sql.DB) *PostgresTenantStore {
	return &PostgresTenantStore{db: db}
}

const tenantColumns = `id, name, slug, domain, status, created_at, updated_at`

func scanTenant(row interface{ Scan(dest ...any) error }) (*models.Tenant, error) {
	var t models.Tenant
	var tid uuid.UUID
	var domain sql.NullString
	if err := row.Scan(&tid, &t.Name, &t.Slug, &domain, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TenantID(tid)
	t.Domain = domain.String
	return &t, nil
}

func (s *PostgresTenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, domain, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(tenant.ID), tenant.Name, tenant.Slug, nullString(tenant.Domain),
		tenant.Status, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresTenantStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, uuid.UUID(tenantID))
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return t, nil
}

func (s *PostgresTenantStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE lower(slug) = lower($1)`, slug)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant by slug: %w", err)
	}
	return t, nil
}

func (s *PostgresTenantStore) FindByDomain(ctx context.Context, candidates []string) ([]*models.Tenant, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE domain IS NOT NULL AND lower(domain) = ANY($1)
		 ORDER BY slug`, pq.Array(candidates))
	if err != nil {
		return nil, fmt.Errorf("find tenants by domain: %w", err)
	}
	defer rows.Close()
	var out []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresTenantStore) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE status = 'active' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()
	var out []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresTenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE tenants SET name = $2, slug = $3, domain = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(tenant.ID), tenant.Name, tenant.Slug, nullString(tenant.Domain),
		tenant.Status, tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresUserStore persists users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(user.ID), uuid.UUID(user.TenantID), user.Email,
		user.PasswordHash, user.Role.String(), user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	q := tx.Resolve(ctx, s.db)
	var u models.User
	var uid, tid uuid.UUID
	var role string
	err := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, password_hash, role, created_at
		FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&uid, &tid, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	u.ID = id.UserID(uid)
	u.TenantID = id.TenantID(tid)
	u.Role = id.Role(role)
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
