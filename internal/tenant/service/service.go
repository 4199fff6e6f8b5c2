package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tenantmetrics "skdm/internal/tenant/metrics"
	"skdm/internal/tenant/models"
	"skdm/internal/tenant/store"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

// Credential identifies a principal for tenant resolution. Exactly one
// field should be set; they are tried in order: explicit ID, slug, email.
type Credential struct {
	TenantID id.TenantID
	Slug     string
	Email    string
}

// Service orchestrates tenant lifecycle and resolution.
type Service struct {
	tenants store.TenantStore
	users   store.UserStore
	logger  *slog.Logger
	metrics *tenantmetrics.Metrics
	auditor audit.Publisher
}

// Option configures the Service.
type Option func(*Service)

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(tenants store.TenantStore, users store.UserStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{tenants: tenants, users: users, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveTenant maps a credential to exactly one active tenant.
//
// E-mail resolution tries the literal e-mail domain plus its dot-stripped
// form (legacy tenant records store "ecosfercomtr" for "ecosfer.com"). An
// ambiguous domain match fails rather than picking one; a user with an
// existing tenant assignment is used as the fallback. Inactive tenants
// never resolve. There is no default tenant.
func (s *Service) ResolveTenant(ctx context.Context, cred Credential) (id.TenantID, error) {
	start := time.Now()
	tenantID, err := s.resolve(ctx, cred)
	if s.metrics != nil {
		s.metrics.ObserveResolveTenant(start)
		if err != nil {
			s.metrics.IncResolutionFailure(string(dErrors.CodeOf(err)))
		}
	}
	return tenantID, err
}

func (s *Service) resolve(ctx context.Context, cred Credential) (id.TenantID, error) {
	switch {
	case !cred.TenantID.IsNil():
		return s.resolveByID(ctx, cred.TenantID)
	case cred.Slug != "":
		return s.resolveBySlug(ctx, cred.Slug)
	case cred.Email != "":
		return s.resolveByEmail(ctx, cred.Email)
	default:
		return id.TenantID{}, dErrors.New(dErrors.CodeBadRequest, "credential is empty")
	}
}

func (s *Service) resolveByID(ctx context.Context, tenantID id.TenantID) (id.TenantID, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return id.TenantID{}, wrapTenantErr(err)
	}
	if !tenant.IsActive() {
		return id.TenantID{}, dErrors.New(dErrors.CodeNotFound, "tenant is not active")
	}
	return tenant.ID, nil
}

func (s *Service) resolveBySlug(ctx context.Context, slug string) (id.TenantID, error) {
	tenant, err := s.tenants.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return id.TenantID{}, wrapTenantErr(err)
	}
	if !tenant.IsActive() {
		return id.TenantID{}, dErrors.New(dErrors.CodeNotFound, "tenant is not active")
	}
	return tenant.ID, nil
}

func (s *Service) resolveByEmail(ctx context.Context, email string) (id.TenantID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return id.TenantID{}, dErrors.New(dErrors.CodeBadRequest, "e-mail has no domain part")
	}
	domain := email[at+1:]

	candidates := []string{domain}
	if stripped := strings.ReplaceAll(domain, ".", ""); stripped != domain {
		candidates = append(candidates, stripped)
	}

	matches, err := s.tenants.FindByDomain(ctx, candidates)
	if err != nil {
		return id.TenantID{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant lookup failed")
	}

	var active []*models.Tenant
	for _, t := range matches {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	switch len(active) {
	case 1:
		return active[0].ID, nil
	case 0:
		// fall through to the user's existing assignment
	default:
		s.logger.WarnContext(ctx, "ambiguous tenant domain mapping",
			"domain", domain,
			"matches", len(active),
			"request_id", requestcontext.RequestID(ctx),
		)
		return id.TenantID{}, dErrors.New(dErrors.CodeConflict, "e-mail domain maps to more than one tenant")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.TenantID{}, dErrors.New(dErrors.CodeNotFound, "no tenant for credential")
		}
		return id.TenantID{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}
	return s.resolveByID(ctx, user.TenantID)
}

// CreateTenant provisions a new tenant organization.
func (s *Service) CreateTenant(ctx context.Context, name, slug, domain string) (*models.Tenant, error) {
	tenant, err := models.NewTenant(id.NewTenantID(), name, slug, domain, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant slug must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Category:  audit.CategoryCompliance,
			Action:    audit.ActionTenantCreated,
			TenantID:  tenant.ID,
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit emission failed")
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
	return tenant, nil
}

// GetTenant retrieves a tenant by ID.
func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant id is required")
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	return tenant, nil
}

// ListActiveTenants returns all active tenants, for admin surfaces.
func (s *Service) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant listing failed")
	}
	return tenants, nil
}

// DeactivateTenant transitions a tenant to inactive status. Deactivation is
// an immediate resolution boundary: no new session can resolve the tenant.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := tenant.CanDeactivate(); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "tenant is already inactive")
	}
	tenant.ApplyDeactivation(requestcontext.Now(ctx))
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, wrapTenantErr(err)
	}
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			Category:  audit.CategoryCompliance,
			Action:    audit.ActionTenantDeactivated,
			TenantID:  tenant.ID,
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit emission failed")
		}
	}
	return tenant, nil
}

// RegisterUser creates a user within the given tenant.
func (s *Service) RegisterUser(ctx context.Context, tenantID id.TenantID, email, passwordHash string, role id.Role) (*models.User, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, dErrors.New(dErrors.CodeConflict, "tenant is not active")
	}
	user, err := models.NewUser(id.NewUserID(), tenantID, email, passwordHash, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "e-mail is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

func wrapTenantErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
	}
}
