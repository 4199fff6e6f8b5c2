package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"skdm/internal/gateway"
	"skdm/internal/installation/models"
	"skdm/internal/refdata"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/platform/tx"
)

// PostgresStore persists the installation chain. Reads filter by tenant_id;
// lookups that miss run an unscoped existence probe so callers can tell a
// cross-tenant access from a missing row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateCompany(ctx context.Context, scope gateway.Scope, company *models.Company) error {
	if company.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO companies (id, tenant_id, name, tax_number, address, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(company.ID), uuid.UUID(company.TenantID), company.Name,
		nullString(company.TaxNumber), nullString(company.Address), nullString(company.Country),
		company.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

const companyColumns = `id, tenant_id, name, tax_number, address, country, created_at`

func scanCompany(row interface{ Scan(dest ...any) error }) (*models.Company, error) {
	var c models.Company
	var cid, tid uuid.UUID
	var taxNumber, address, country sql.NullString
	if err := row.Scan(&cid, &tid, &c.Name, &taxNumber, &address, &country, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CompanyID(cid)
	c.TenantID = id.TenantID(tid)
	c.TaxNumber = taxNumber.String
	c.Address = address.String
	c.Country = country.String
	return &c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, scope gateway.Scope) ([]*models.Company, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE tenant_id = $1 ORDER BY created_at`,
		uuid.UUID(scope.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()
	var out []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FirstCompany(ctx context.Context, scope gateway.Scope) (*models.Company, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE tenant_id = $1 ORDER BY created_at LIMIT 1`,
		uuid.UUID(scope.TenantID))
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("first company: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) CreateInstallation(ctx context.Context, scope gateway.Scope, installation *models.Installation) error {
	if installation.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	q := tx.Resolve(ctx, s.db)
	// Parent company must belong to the same tenant.
	var companyTenant uuid.UUID
	err := q.QueryRowContext(ctx,
		`SELECT tenant_id FROM companies WHERE id = $1`, uuid.UUID(installation.CompanyID)).
		Scan(&companyTenant)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check company tenant: %w", err)
	}
	if id.TenantID(companyTenant) != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO installations (id, tenant_id, company_id, name, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(installation.ID), uuid.UUID(installation.TenantID), uuid.UUID(installation.CompanyID),
		installation.Name, nullString(installation.Country), installation.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create installation: %w", err)
	}
	return nil
}

const installationColumns = `id, tenant_id, company_id, name, country, created_at`

func scanInstallation(row interface{ Scan(dest ...any) error }) (*models.Installation, error) {
	var inst models.Installation
	var iid, tid, cid uuid.UUID
	var country sql.NullString
	if err := row.Scan(&iid, &tid, &cid, &inst.Name, &country, &inst.CreatedAt); err != nil {
		return nil, err
	}
	inst.ID = id.InstallationID(iid)
	inst.TenantID = id.TenantID(tid)
	inst.CompanyID = id.CompanyID(cid)
	inst.Country = country.String
	return &inst, nil
}

func (s *PostgresStore) ListInstallations(ctx context.Context, scope gateway.Scope) ([]*models.Installation, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+installationColumns+` FROM installations WHERE tenant_id = $1 ORDER BY created_at`,
		uuid.UUID(scope.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list installations: %w", err)
	}
	defer rows.Close()
	var out []*models.Installation
	for rows.Next() {
		inst, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installation: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetInstallation(ctx context.Context, scope gateway.Scope, installationID id.InstallationID) (*models.Installation, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+installationColumns+` FROM installations WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(installationID), uuid.UUID(scope.TenantID))
	inst, err := scanInstallation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.probeInstallation(ctx, installationID)
		}
		return nil, fmt.Errorf("get installation: %w", err)
	}
	return inst, nil
}

// probeInstallation distinguishes "row does not exist" from "row belongs to
// another tenant" after a scoped lookup came back empty.
func (s *PostgresStore) probeInstallation(ctx context.Context, installationID id.InstallationID) error {
	q := tx.Resolve(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM installations WHERE id = $1)`, uuid.UUID(installationID)).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("probe installation: %w", err)
	}
	if exists {
		return sentinel.ErrTenantMismatch
	}
	return sentinel.ErrNotFound
}

func (s *PostgresStore) CreateInstallationData(ctx context.Context, scope gateway.Scope, data *models.InstallationData) error {
	if data.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	q := tx.Resolve(ctx, s.db)
	if _, err := s.GetInstallation(ctx, scope, data.InstallationID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO installation_data (id, tenant_id, installation_id, period, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(data.ID), uuid.UUID(data.TenantID), uuid.UUID(data.InstallationID),
		data.Period, data.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create installation data: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInstallationData(ctx context.Context, scope gateway.Scope, dataID id.InstallationDataID) (*models.InstallationData, error) {
	q := tx.Resolve(ctx, s.db)
	var data models.InstallationData
	var did, tid, iid uuid.UUID
	err := q.QueryRowContext(ctx, `
		SELECT id, tenant_id, installation_id, period, created_at
		FROM installation_data WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(dataID), uuid.UUID(scope.TenantID)).
		Scan(&did, &tid, &iid, &data.Period, &data.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.probeInstallationData(ctx, dataID)
		}
		return nil, fmt.Errorf("get installation data: %w", err)
	}
	data.ID = id.InstallationDataID(did)
	data.TenantID = id.TenantID(tid)
	data.InstallationID = id.InstallationID(iid)

	if data.Goods, err = s.loadGoods(ctx, dataID); err != nil {
		return nil, err
	}
	if data.Processes, err = s.loadProcesses(ctx, dataID); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *PostgresStore) probeInstallationData(ctx context.Context, dataID id.InstallationDataID) error {
	q := tx.Resolve(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM installation_data WHERE id = $1)`, uuid.UUID(dataID)).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("probe installation data: %w", err)
	}
	if exists {
		return sentinel.ErrTenantMismatch
	}
	return sentinel.ErrNotFound
}

func (s *PostgresStore) ListInstallationData(ctx context.Context, scope gateway.Scope) ([]*models.InstallationData, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, installation_id, period, created_at
		FROM installation_data WHERE tenant_id = $1 ORDER BY created_at`,
		uuid.UUID(scope.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list installation data: %w", err)
	}
	defer rows.Close()
	var out []*models.InstallationData
	for rows.Next() {
		var data models.InstallationData
		var did, tid, iid uuid.UUID
		if err := rows.Scan(&did, &tid, &iid, &data.Period, &data.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan installation data: %w", err)
		}
		data.ID = id.InstallationDataID(did)
		data.TenantID = id.TenantID(tid)
		data.InstallationID = id.InstallationID(iid)
		out = append(out, &data)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, data := range out {
		if data.Goods, err = s.loadGoods(ctx, data.ID); err != nil {
			return nil, err
		}
		if data.Processes, err = s.loadProcesses(ctx, data.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) loadGoods(ctx context.Context, dataID id.InstallationDataID) ([]models.GoodsCategoryAndRoute, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, installation_data_id, category, cn_code, production_route
		FROM installation_goods WHERE installation_data_id = $1 ORDER BY category, cn_code`,
		uuid.UUID(dataID))
	if err != nil {
		return nil, fmt.Errorf("load goods: %w", err)
	}
	defer rows.Close()
	var out []models.GoodsCategoryAndRoute
	for rows.Next() {
		var g models.GoodsCategoryAndRoute
		var did uuid.UUID
		var category string
		var cnCode, route sql.NullString
		if err := rows.Scan(&g.ID, &did, &category, &cnCode, &route); err != nil {
			return nil, fmt.Errorf("scan goods: %w", err)
		}
		g.InstallationDataID = id.InstallationDataID(did)
		g.Category = refdata.GoodsCategory(category)
		g.CNCode = cnCode.String
		g.ProductionRoute = route.String
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) loadProcesses(ctx context.Context, dataID id.InstallationDataID) ([]models.ProductionProcess, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, installation_data_id, category, production_level,
		       direct_emissions, heat_emissions, waste_gas_emissions
		FROM production_processes WHERE installation_data_id = $1 ORDER BY category`,
		uuid.UUID(dataID))
	if err != nil {
		return nil, fmt.Errorf("load processes: %w", err)
	}
	defer rows.Close()
	var out []models.ProductionProcess
	for rows.Next() {
		var p models.ProductionProcess
		var did uuid.UUID
		var category string
		if err := rows.Scan(&p.ID, &did, &category, &p.ProductionLevel,
			&p.DirectEmissions, &p.HeatEmissions, &p.WasteGasEmissions); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.InstallationDataID = id.InstallationDataID(did)
		p.Category = refdata.GoodsCategory(category)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddGoods(ctx context.Context, scope gateway.Scope, goods *models.GoodsCategoryAndRoute) error {
	q := tx.Resolve(ctx, s.db)
	if err := s.requireDataInScope(ctx, scope, goods.InstallationDataID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO installation_goods (id, installation_data_id, category, cn_code, production_route)
		VALUES ($1, $2, $3, $4, $5)`,
		goods.ID, uuid.UUID(goods.InstallationDataID), goods.Category.String(),
		nullString(goods.CNCode), nullString(goods.ProductionRoute),
	)
	if err != nil {
		return fmt.Errorf("add goods: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddProcess(ctx context.Context, scope gateway.Scope, process *models.ProductionProcess) error {
	q := tx.Resolve(ctx, s.db)
	if err := s.requireDataInScope(ctx, scope, process.InstallationDataID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO production_processes
			(id, installation_data_id, category, production_level, direct_emissions, heat_emissions, waste_gas_emissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		process.ID, uuid.UUID(process.InstallationDataID), process.Category.String(),
		process.ProductionLevel, process.DirectEmissions, process.HeatEmissions, process.WasteGasEmissions,
	)
	if err != nil {
		return fmt.Errorf("add process: %w", err)
	}
	return nil
}

func (s *PostgresStore) requireDataInScope(ctx context.Context, scope gateway.Scope, dataID id.InstallationDataID) error {
	q := tx.Resolve(ctx, s.db)
	var tid uuid.UUID
	err := q.QueryRowContext(ctx,
		`SELECT tenant_id FROM installation_data WHERE id = $1`, uuid.UUID(dataID)).
		Scan(&tid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check installation data tenant: %w", err)
	}
	if id.TenantID(tid) != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
