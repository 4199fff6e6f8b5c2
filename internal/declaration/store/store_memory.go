package store

import (
	"context"
	"sort"
	"sync"

	"skdm/internal/declaration/models"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
)

// MemoryStore mirrors the postgres contract for unit tests.
type MemoryStore struct {
	mu            sync.RWMutex
	declarations  map[id.DeclarationID]*models.Declaration
	certificates  map[id.CertificateID]*models.Certificate
	surrenders    map[id.DeclarationID][]models.CertificateSurrender
	adjustments   map[id.DeclarationID][]models.FreeAllocationAdjustment
	verifications map[id.DeclarationID]*models.Verification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		declarations:  make(map[id.DeclarationID]*models.Declaration),
		certificates:  make(map[id.CertificateID]*models.Certificate),
		surrenders:    make(map[id.DeclarationID][]models.CertificateSurrender),
		adjustments:   make(map[id.DeclarationID][]models.FreeAllocationAdjustment),
		verifications: make(map[id.DeclarationID]*models.Verification),
	}
}

func (s *MemoryStore) CreateDeclaration(_ context.Context, scope gateway.Scope, declaration *models.Declaration) error {
	if declaration.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.declarations[declaration.ID]; exists {
		return sentinel.ErrConflict
	}
	// One declaration per tenant and year.
	for _, d := range s.declarations {
		if d.TenantID == declaration.TenantID && d.Year == declaration.Year {
			return sentinel.ErrAlreadyUsed
		}
	}
	clone := *declaration
	s.declarations[declaration.ID] = &clone
	return nil
}

// requireDeclaration resolves a declaration within scope, holding at least
// a read lock.
func (s *MemoryStore) requireDeclaration(scope gateway.Scope, declarationID id.DeclarationID) (*models.Declaration, error) {
	d, ok := s.declarations[declarationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if d.TenantID != scope.TenantID {
		return nil, sentinel.ErrTenantMismatch
	}
	return d, nil
}

func (s *MemoryStore) GetDeclaration(_ context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, err := s.requireDeclaration(scope, declarationID)
	if err != nil {
		return nil, err
	}
	clone := *d
	return &clone, nil
}

func (s *MemoryStore) ListDeclarations(_ context.Context, scope gateway.Scope) ([]*models.Declaration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Declaration
	for _, d := range s.declarations {
		if d.TenantID == scope.TenantID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func (s *MemoryStore) UpdateDeclaration(_ context.Context, scope gateway.Scope, declaration *models.Declaration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireDeclaration(scope, declaration.ID); err != nil {
		return err
	}
	clone := *declaration
	s.declarations[declaration.ID] = &clone
	return nil
}

func (s *MemoryStore) CreateCertificate(_ context.Context, scope gateway.Scope, certificate *models.Certificate) error {
	if certificate.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certificates[certificate.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, c := range s.certificates {
		if c.TenantID == certificate.TenantID && c.CertificateNo == certificate.CertificateNo {
			return sentinel.ErrAlreadyUsed
		}
	}
	clone := *certificate
	s.certificates[certificate.ID] = &clone
	return nil
}

func (s *MemoryStore) requireCertificate(scope gateway.Scope, certificateID id.CertificateID) (*models.Certificate, error) {
	c, ok := s.certificates[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.TenantID != scope.TenantID {
		return nil, sentinel.ErrTenantMismatch
	}
	return c, nil
}

func (s *MemoryStore) GetCertificate(_ context.Context, scope gateway.Scope, certificateID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.requireCertificate(scope, certificateID)
	if err != nil {
		return nil, err
	}
	clone := *c
	return &clone, nil
}

func (s *MemoryStore) ListCertificates(_ context.Context, scope gateway.Scope) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certificate
	for _, c := range s.certificates {
		if c.TenantID == scope.TenantID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CertificateNo < out[j].CertificateNo })
	return out, nil
}

func (s *MemoryStore) UpdateCertificateStatus(_ context.Context, scope gateway.Scope, certificateID id.CertificateID, status models.CertificateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.requireCertificate(scope, certificateID)
	if err != nil {
		return err
	}
	c.Status = status
	return nil
}

func (s *MemoryStore) SurrenderedQuantity(_ context.Context, scope gateway.Scope, certificateID id.CertificateID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireCertificate(scope, certificateID); err != nil {
		return 0, err
	}
	total := 0
	for _, list := range s.surrenders {
		for _, surrender := range list {
			if surrender.CertificateID == certificateID {
				total += surrender.Quantity
			}
		}
	}
	return total, nil
}

func (s *MemoryStore) AddSurrender(_ context.Context, scope gateway.Scope, surrender *models.CertificateSurrender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireDeclaration(scope, surrender.DeclarationID); err != nil {
		return err
	}
	if _, err := s.requireCertificate(scope, surrender.CertificateID); err != nil {
		return err
	}
	s.surrenders[surrender.DeclarationID] = append(s.surrenders[surrender.DeclarationID], *surrender)
	return nil
}

func (s *MemoryStore) ListSurrenders(_ context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.CertificateSurrender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireDeclaration(scope, declarationID); err != nil {
		return nil, err
	}
	list := s.surrenders[declarationID]
	out := make([]*models.CertificateSurrender, 0, len(list))
	for i := range list {
		clone := list[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) AddAdjustment(_ context.Context, scope gateway.Scope, adjustment *models.FreeAllocationAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireDeclaration(scope, adjustment.DeclarationID); err != nil {
		return err
	}
	s.adjustments[adjustment.DeclarationID] = append(s.adjustments[adjustment.DeclarationID], *adjustment)
	return nil
}

func (s *MemoryStore) ListAdjustments(_ context.Context, scope gateway.Scope, declarationID id.DeclarationID) ([]*models.FreeAllocationAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireDeclaration(scope, declarationID); err != nil {
		return nil, err
	}
	list := s.adjustments[declarationID]
	out := make([]*models.FreeAllocationAdjustment, 0, len(list))
	for i := range list {
		clone := list[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) UpsertVerification(_ context.Context, scope gateway.Scope, verification *models.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireDeclaration(scope, verification.DeclarationID); err != nil {
		return err
	}
	clone := *verification
	s.verifications[verification.DeclarationID] = &clone
	return nil
}

func (s *MemoryStore) GetVerification(_ context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*models.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireDeclaration(scope, declarationID); err != nil {
		return nil, err
	}
	v, ok := s.verifications[declarationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *v
	return &clone, nil
}
