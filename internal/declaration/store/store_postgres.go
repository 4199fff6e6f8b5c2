package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"skdm/internal/declaration/models"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/platform/tx"
)

// PostgresStore persists declarations in PostgreSQL. Every SELECT filters
// by tenant_id; a miss is followed by an unscoped existence probe so the
// service can distinguish a cross-tenant access from a missing row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const declarationColumns = `id, tenant_id, year, status, total_emissions, total_certificates, submission_date, notes, created_at, updated_at`

func scanDeclaration(row interface{ Scan(dest ...any) error }) (*models.Declaration, error) {
	var d models.Declaration
	var did, tid uuid.UUID
	var status string
	var totalEmissions decimal.NullDecimal
	var totalCertificates sql.NullInt64
	var submissionDate sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&did, &tid, &d.Year, &status, &totalEmissions, &totalCertificates,
		&submissionDate, &notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = id.DeclarationID(did)
	d.TenantID = id.TenantID(tid)
	d.Status = models.Status(status)
	if totalEmissions.Valid {
		v := totalEmissions.Decimal
		d.TotalEmissions = &v
	}
	if totalCertificates.Valid {
		v := int(totalCertificates.Int64)
		d.TotalCertificates = &v
	}
	if submissionDate.Valid {
		v := submissionDate.Time
		d.SubmissionDate = &v
	}
	d.Notes = notes.String
	return &d, nil
}

func (s *PostgresStore) CreateDeclaration(ctx context.Context, scope gateway.Scope, declaration *models.Declaration) error {
	if declaration.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO declarations (id, tenant_id, year, status, total_emissions, total_certificates, submission_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(declaration.ID), uuid.UUID(declaration.TenantID), declaration.Year,
		declaration.Status.String(), nullDecimal(declaration.TotalEmissions),
		nullInt(declaration.TotalCertificates), nullTimePtr(declaration.SubmissionDate),
		nullString(declaration.Notes), declaration.CreatedAt, declaration.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create declaration: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDeclaration(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Declaration, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(declarationID), uuid.UUID(scope.TenantID))
	d, err := scanDeclaration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.probe(ctx, "declarations", uuid.UUID(declarationID))
		}
		return nil, fmt.Errorf("get declaration: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDeclarations(ctx context.Context, scope gateway.Scope) ([]*models.Declaration, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE tenant_id = $1 ORDER BY year`,
		uuid.UUID(scope.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	defer rows.Close()
	var out []*models.Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDeclaration(ctx context.Context, scope gateway.Scope, declaration *models.Declaration) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE declarations
		SET status = $3, total_emissions = $4, total_certificates = $5,
		    submission_date = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(declaration.ID), uuid.UUID(scope.TenantID),
		declaration.Status.String(), nullDecimal(declaration.TotalEmissions),
		nullInt(declaration.TotalCertificates), nullTimePtr(declaration.SubmissionDate),
		nullString(declaration.Notes), declaration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update declaration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update declaration rows affected: %w", err)
	}
	if n == 0 {
		return s.probe(ctx, "declarations", uuid.UUID(declaration.ID))
	}
	return nil
}

const certificateColumns = `id, tenant_id, certificate_no, quantity, price_per_tonne, issue_date, expiry_date, status, created_at`

func scanCertificate(row interface{ Scan(dest ...any) error }) (*models.Certificate, error) {
	var c models.Certificate
	var cid, tid uuid.UUID
	var status string
	var expiry sql.NullTime
	if err := row.Scan(&cid, &tid, &c.CertificateNo, &c.Quantity, &c.PricePerTonne,
		&c.IssueDate, &expiry, &status, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CertificateID(cid)
	c.TenantID = id.TenantID(tid)
	c.Status = models.CertificateStatus(status)
	if expiry.Valid {
		c.ExpiryDate = expiry.Time
	}
	return &c, nil
}

func (s *PostgresStore) CreateCertificate(ctx context.Context, scope gateway.Scope, certificate *models.Certificate) error {
	if certificate.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO certificates (id, tenant_id, certificate_no, quantity, price_per_tonne, issue_date, expiry_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(certificate.ID), uuid.UUID(certificate.TenantID), certificate.CertificateNo,
		certificate.Quantity, certificate.PricePerTonne, certificate.IssueDate,
		nullTime(certificate.ExpiryDate), string(certificate.Status), certificate.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCertificate(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID) (*models.Certificate, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(certificateID), uuid.UUID(scope.TenantID))
	c, err := scanCertificate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.probe(ctx, "certificates", uuid.UUID(certificateID))
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCertificates(ctx context.Context, scope gateway.Scope) ([]*models.Certificate, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE tenant_id = $1 ORDER BY certificate_no`,
		uuid.UUID(scope.TenantID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	var out []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateCertificateStatus(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID, status models.CertificateStatus) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx,
		`UPDATE certificates SET status = $3 WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(certificateID), uuid.UUID(scope.TenantID), string(status))
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate rows affected: %w", err)
	}
	if n == 0 {
		return s.probe(ctx, "certificates", uuid.UUID(certificateID))
	}
	return nil
}

func (s *PostgresStore) SurrenderedQuantity(ctx context.Context, scope gateway.Scope, certificateID id.CertificateID) (int, error) {
	if _, err := s.GetCertificate(ctx, scope, certificateID); err != nil {
		return 0, err
	}
	q := tx.Resolve(ctx, s.db)
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM certificate_surrenders WHERE certificate_id = $1`,
		uuid.UUID(certificateID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum surrendered quantity: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) AddSurrender(ctx context.Context, scope gateway.Scope, surrender *models.CertificateSurrender) error {
	if _, err := s.GetDeclaration(ctx, scope, surrender.DeclarationID); err != nil {
		return err
	}
	if _, err := s.GetCertificate(ctx, scope, surrender.CertificateID); err != nil {
		return err
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO certificate_surrenders (id, declaration_id, certificate_id, quantity, surrender_date)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(surrender.ID), uuid.UUID(surrender.DeclarationID), uuid.UUID(surrender.CertificateID),
		surrender.Quantity, surrender.SurrenderDate,
	)
	if err != nil {
		return fmt.Errorf("add surrender: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSurrenders(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.CertificateSurrender, error) {
	if _, err := s.GetDeclaration(ctx, scope, declarationID); err != nil {
		return nil, err
	}
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, declaration_id, certificate_id, quantity, surrender_date
		FROM certificate_surrenders WHERE declaration_id = $1 ORDER BY surrender_date, id`,
		uuid.UUID(declarationID))
	if err != nil {
		return nil, fmt.Errorf("list surrenders: %w", err)
	}
	defer rows.Close()
	var out []*models.CertificateSurrender
	for rows.Next() {
		var surrender models.CertificateSurrender
		var sid, did, cid uuid.UUID
		if err := rows.Scan(&sid, &did, &cid, &surrender.Quantity, &surrender.SurrenderDate); err != nil {
			return nil, fmt.Errorf("scan surrender: %w", err)
		}
		surrender.ID = id.SurrenderID(sid)
		surrender.DeclarationID = id.DeclarationID(did)
		surrender.CertificateID = id.CertificateID(cid)
		out = append(out, &surrender)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddAdjustment(ctx context.Context, scope gateway.Scope, adjustment *models.FreeAllocationAdjustment) error {
	if _, err := s.GetDeclaration(ctx, scope, adjustment.DeclarationID); err != nil {
		return err
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO free_allocation_adjustments (id, declaration_id, adjustment_type, amount, description, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(adjustment.ID), uuid.UUID(adjustment.DeclarationID), adjustment.Type.String(),
		adjustment.Amount, nullString(adjustment.Description), adjustment.EffectiveDate,
	)
	if err != nil {
		return fmt.Errorf("add adjustment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAdjustments(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.FreeAllocationAdjustment, error) {
	if _, err := s.GetDeclaration(ctx, scope, declarationID); err != nil {
		return nil, err
	}
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, declaration_id, adjustment_type, amount, description, effective_date
		FROM free_allocation_adjustments WHERE declaration_id = $1 ORDER BY effective_date, adjustment_type`,
		uuid.UUID(declarationID))
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	var out []*models.FreeAllocationAdjustment
	for rows.Next() {
		var adjustment models.FreeAllocationAdjustment
		var aid, did uuid.UUID
		var adjustmentType string
		var description sql.NullString
		if err := rows.Scan(&aid, &did, &adjustmentType, &adjustment.Amount, &description, &adjustment.EffectiveDate); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjustment.ID = id.AdjustmentID(aid)
		adjustment.DeclarationID = id.DeclarationID(did)
		adjustment.Type = models.AdjustmentType(adjustmentType)
		adjustment.Description = description.String
		out = append(out, &adjustment)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertVerification(ctx context.Context, scope gateway.Scope, verification *models.Verification) error {
	if _, err := s.GetDeclaration(ctx, scope, verification.DeclarationID); err != nil {
		return err
	}
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO verifications (declaration_id, verifier_name, accreditation_no, opinion, period, issue_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (declaration_id) DO UPDATE
		SET verifier_name = EXCLUDED.verifier_name,
		    accreditation_no = EXCLUDED.accreditation_no,
		    opinion = EXCLUDED.opinion,
		    period = EXCLUDED.period,
		    issue_date = EXCLUDED.issue_date,
		    notes = EXCLUDED.notes`,
		uuid.UUID(verification.DeclarationID), verification.VerifierName,
		nullString(verification.AccreditationNo), verification.Opinion.String(),
		nullString(verification.Period), verification.IssueDate, nullString(verification.Notes),
	)
	if err != nil {
		return fmt.Errorf("upsert verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVerification(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Verification, error) {
	if _, err := s.GetDeclaration(ctx, scope, declarationID); err != nil {
		return nil, err
	}
	q := tx.Resolve(ctx, s.db)
	var v models.Verification
	var did uuid.UUID
	var accreditation, period, notes sql.NullString
	var opinion string
	err := q.QueryRowContext(ctx, `
		SELECT declaration_id, verifier_name, accreditation_no, opinion, period, issue_date, notes
		FROM verifications WHERE declaration_id = $1`, uuid.UUID(declarationID)).
		Scan(&did, &v.VerifierName, &accreditation, &opinion, &period, &v.IssueDate, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	v.DeclarationID = id.DeclarationID(did)
	v.AccreditationNo = accreditation.String
	v.Opinion = models.VerificationOpinion(opinion)
	v.Period = period.String
	v.Notes = notes.String
	return &v, nil
}

// probe runs an unscoped existence check after a scoped lookup missed. The
// table name comes from a fixed call-site literal, never user input.
func (s *PostgresStore) probe(ctx context.Context, table string, rowID uuid.UUID) error {
	q := tx.Resolve(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, rowID).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("probe %s: %w", table, err)
	}
	if exists {
		return sentinel.ErrTenantMismatch
	}
	return sentinel.ErrNotFound
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
