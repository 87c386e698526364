package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBlobStore is a mock implementation of blob storage
type MockBlobStore struct {
	mock.Mock
	URL string
}

// Upload mocks the Upload method
func (m *MockBlobStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

// Delete mocks the Delete method
func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// BaseURL returns the configured URL without recording a call.
func (m *MockBlobStore) BaseURL() string {
	return m.URL
}
