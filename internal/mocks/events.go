package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/venicedesk/internal/domain"
)

// MockEventPublisher is a mock of domain.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

// NewMockEventPublisher creates a MockEventPublisher whose expectations are asserted at cleanup.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	m.Called(ctx, eventType, data)
}

var _ domain.EventPublisher = (*MockEventPublisher)(nil)

// MockSink is a mock of stats.Sink.
type MockSink struct {
	mock.Mock
}

// NewMockSink creates a MockSink whose expectations are asserted at cleanup.
func NewMockSink(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSink {
	m := &MockSink{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSink) Append(ctx context.Context, record domain.StatsRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockSink) Load(ctx context.Context) ([]domain.StatsRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]domain.StatsRecord)
	return records, args.Error(1)
}

func (m *MockSink) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
