package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/diag-leads/internal/entity"
)

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event entity.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockLeadRepository - usado só para simular falhas de infraestrutura
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListStale(ctx context.Context, before time.Time) ([]*entity.Lead, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListStatusHistory(ctx context.Context, leadID string) ([]*entity.StatusHistoryEntry, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.StatusHistoryEntry), args.Error(1)
}

func (m *MockLeadRepository) ListInteractions(ctx context.Context, leadID string) ([]*entity.Interaction, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Interaction), args.Error(1)
}

func (m *MockLeadRepository) UpdateScoring(ctx context.Context, leadID string, scoring entity.LeadScoring) (*entity.Lead, error) {
	args := m.Called(ctx, leadID, scoring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) WithinTx(ctx context.Context, fn func(tx entity.LeadTx) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeResolver devolve sempre o mesmo perfil e guarda o telefone recebido.
type fakeResolver struct {
	profile  entity.GeoProfile
	received string
}

func (f *fakeResolver) Resolve(rawPhone string) entity.GeoProfile {
	f.received = rawPhone
	return f.profile
}
