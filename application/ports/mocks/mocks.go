// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/events"
)

var (
	_ ports.ForestRepository = (*MockForestRepository)(nil)
	_ ports.LocalStore       = (*MockLocalStore)(nil)
	_ ports.RemoteStore      = (*MockRemoteStore)(nil)
	_ ports.EventPublisher   = (*MockEventPublisher)(nil)
	_ ports.AIService        = (*MockAIService)(nil)
)

func forest(v interface{}) []aggregates.NodeSnapshot {
	if v == nil {
		return nil
	}
	return v.([]aggregates.NodeSnapshot)
}

// MockForestRepository mocks ports.ForestRepository
type MockForestRepository struct {
	mock.Mock
}

func (m *MockForestRepository) Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error) {
	args := m.Called(ctx, mapID)
	return forest(args.Get(0)), args.Error(1)
}

func (m *MockForestRepository) Save(ctx context.Context, mapID string, nodes []aggregates.NodeSnapshot) error {
	args := m.Called(ctx, mapID, nodes)
	return args.Error(0)
}

func (m *MockForestRepository) Clear(ctx context.Context, mapID string) error {
	args := m.Called(ctx, mapID)
	return args.Error(0)
}

// MockLocalStore mocks ports.LocalStore
type MockLocalStore struct {
	mock.Mock
}

func (m *MockLocalStore) Load(ctx context.Context) ([]aggregates.NodeSnapshot, error) {
	args := m.Called(ctx)
	return forest(args.Get(0)), args.Error(1)
}

func (m *MockLocalStore) Save(ctx context.Context, nodes []aggregates.NodeSnapshot) error {
	args := m.Called(ctx, nodes)
	return args.Error(0)
}

func (m *MockLocalStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRemoteStore mocks ports.RemoteStore
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) Fetch(ctx context.Context) []aggregates.NodeSnapshot {
	args := m.Called(ctx)
	return forest(args.Get(0))
}

func (m *MockRemoteStore) Persist(ctx context.Context, nodes []aggregates.NodeSnapshot) {
	m.Called(ctx, nodes)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

// MockAIService mocks ports.AIService
type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) Ask(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}

func (m *MockAIService) Summarize(ctx context.Context, req ports.SummaryRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAIService) GenerateChildren(ctx context.Context, req ports.GenerateRequest) ([]string, error) {
	args := m.Called(ctx, req)
	var questions []string
	if v := args.Get(0); v != nil {
		questions = v.([]string)
	}
	return questions, args.Error(1)
}
