// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/venicedesk/internal/domain"
)

// MockProvider is a mock of domain.Provider.
type MockProvider struct {
	mock.Mock
}

// NewMockProvider creates a MockProvider whose expectations are asserted at cleanup.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProvider) Complete(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ChatCompletionRequest,
) (*domain.ChatCompletionResponse, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	resp, _ := args.Get(0).(*domain.ChatCompletionResponse)
	return resp, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockProvider) StreamChat(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ChatCompletionRequest,
) (domain.ChunkStream, error) {
	args := m.Called(ctx, cred, req)
	stream, _ := args.Get(0).(domain.ChunkStream)
	return stream, args.Error(1)
}

func (m *MockProvider) GenerateImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageGenerateRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	result, _ := args.Get(0).(*domain.ImageResult)
	return result, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockProvider) EditImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageEditRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	result, _ := args.Get(0).(*domain.ImageResult)
	return result, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockProvider) UpscaleImage(
	ctx context.Context,
	cred domain.Credential,
	req *domain.ImageUpscaleRequest,
) (*domain.ImageResult, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	result, _ := args.Get(0).(*domain.ImageResult)
	return result, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockProvider) CreateEmbeddings(
	ctx context.Context,
	cred domain.Credential,
	req *domain.EmbeddingRequest,
) (*domain.EmbeddingResponse, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	resp, _ := args.Get(0).(*domain.EmbeddingResponse)
	return resp, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

func (m *MockProvider) CreateSpeech(
	ctx context.Context,
	cred domain.Credential,
	req *domain.SpeechRequest,
) (*domain.BinaryContent, domain.ResponseMetadata, error) {
	args := m.Called(ctx, cred, req)
	audio, _ := args.Get(0).(*domain.BinaryContent)
	return audio, args.Get(1).(domain.ResponseMetadata), args.Error(2)
}

var _ domain.Provider = (*MockProvider)(nil)
