package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/venicedesk/internal/domain"
)

// MockCatalogProvider is a mock of domain.CatalogProvider.
type MockCatalogProvider struct {
	mock.Mock
}

// NewMockCatalogProvider creates a MockCatalogProvider whose expectations are asserted at cleanup.
func NewMockCatalogProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCatalogProvider {
	m := &MockCatalogProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCatalogProvider) ListModels(ctx context.Context, cred domain.Credential) ([]domain.Model, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred)
	models, _ := args.Get(0).([]domain.Model)
	return models, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockCatalogProvider) GetModel(ctx context.Context, cred domain.Credential, id string) (*domain.Model, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, id)
	model, _ := args.Get(0).(*domain.Model)
	return model, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockCatalogProvider) ModelTraits(ctx context.Context, cred domain.Credential) (map[string][]string, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred)
	traits, _ := args.Get(0).(map[string][]string)
	return traits, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockCatalogProvider) CompatibilityMapping(ctx context.Context, cred domain.Credential) (map[string]string, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred)
	mapping, _ := args.Get(0).(map[string]string)
	return mapping, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockCatalogProvider) ImageStyles(ctx context.Context, cred domain.Credential) ([]string, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred)
	styles, _ := args.Get(0).([]string)
	return styles, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

var _ domain.CatalogProvider = (*MockCatalogProvider)(nil)
