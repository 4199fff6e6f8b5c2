package store

import (
	"context"
	"sort"
	"sync"

	"skdm/internal/gateway"
	"skdm/internal/installation/models"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
)

// MemoryStore mirrors the postgres contract for unit tests, including the
// tenant-mismatch/not-found distinction.
type MemoryStore struct {
	mu            sync.RWMutex
	companies     map[id.CompanyID]*models.Company
	installations map[id.InstallationID]*models.Installation
	data          map[id.InstallationDataID]*models.InstallationData
	goods         map[id.InstallationDataID][]models.GoodsCategoryAndRoute
	processes     map[id.InstallationDataID][]models.ProductionProcess
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies:     make(map[id.CompanyID]*models.Company),
		installations: make(map[id.InstallationID]*models.Installation),
		data:          make(map[id.InstallationDataID]*models.InstallationData),
		goods:         make(map[id.InstallationDataID][]models.GoodsCategoryAndRoute),
		processes:     make(map[id.InstallationDataID][]models.ProductionProcess),
	}
}

func (s *MemoryStore) CreateCompany(_ context.Context, scope gateway.Scope, company *models.Company) error {
	if company.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companies[company.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *company
	s.companies[company.ID] = &clone
	return nil
}

func (s *MemoryStore) ListCompanies(_ context.Context, scope gateway.Scope) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Company
	for _, c := range s.companies {
		if c.TenantID == scope.TenantID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FirstCompany(ctx context.Context, scope gateway.Scope) (*models.Company, error) {
	companies, err := s.ListCompanies(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return companies[0], nil
}

func (s *MemoryStore) CreateInstallation(_ context.Context, scope gateway.Scope, installation *models.Installation) error {
	if installation.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.installations[installation.ID]; exists {
		return sentinel.ErrConflict
	}
	company, ok := s.companies[installation.CompanyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if company.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	clone := *installation
	s.installations[installation.ID] = &clone
	return nil
}

func (s *MemoryStore) ListInstallations(_ context.Context, scope gateway.Scope) ([]*models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Installation
	for _, inst := range s.installations {
		if inst.TenantID == scope.TenantID {
			clone := *inst
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetInstallation(_ context.Context, scope gateway.Scope, installationID id.InstallationID) (*models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.installations[installationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if inst.TenantID != scope.TenantID {
		return nil, sentinel.ErrTenantMismatch
	}
	clone := *inst
	return &clone, nil
}

func (s *MemoryStore) CreateInstallationData(_ context.Context, scope gateway.Scope, data *models.InstallationData) error {
	if data.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[data.ID]; exists {
		return sentinel.ErrConflict
	}
	inst, ok := s.installations[data.InstallationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if inst.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	clone := *data
	clone.Goods = nil
	clone.Processes = nil
	s.data[data.ID] = &clone
	return nil
}

func (s *MemoryStore) GetInstallationData(_ context.Context, scope gateway.Scope, dataID id.InstallationDataID) (*models.InstallationData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[dataID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if data.TenantID != scope.TenantID {
		return nil, sentinel.ErrTenantMismatch
	}
	clone := *data
	clone.Goods = append([]models.GoodsCategoryAndRoute(nil), s.goods[dataID]...)
	clone.Processes = append([]models.ProductionProcess(nil), s.processes[dataID]...)
	return &clone, nil
}

func (s *MemoryStore) ListInstallationData(_ context.Context, scope gateway.Scope) ([]*models.InstallationData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.InstallationData
	for dataID, data := range s.data {
		if data.TenantID != scope.TenantID {
			continue
		}
		clone := *data
		clone.Goods = append([]models.GoodsCategoryAndRoute(nil), s.goods[dataID]...)
		clone.Processes = append([]models.ProductionProcess(nil), s.processes[dataID]...)
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) AddGoods(_ context.Context, scope gateway.Scope, goods *models.GoodsCategoryAndRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[goods.InstallationDataID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if data.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.goods[goods.InstallationDataID] = append(s.goods[goods.InstallationDataID], *goods)
	return nil
}

func (s *MemoryStore) AddProcess(_ context.Context, scope gateway.Scope, process *models.ProductionProcess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[process.InstallationDataID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if data.TenantID != scope.TenantID {
		return sentinel.ErrTenantMismatch
	}
	s.processes[process.InstallationDataID] = append(s.processes[process.InstallationDataID], *process)
	return nil
}
