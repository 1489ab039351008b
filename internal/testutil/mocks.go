package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockUploader is a mock implementation of media.Uploader for testing
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, folder string) (string, error) {
	args := m.Called(ctx, localPath, folder)
	return args.String(0), args.Error(1)
}

// MockCache is a mock implementation of cache.Cache for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCache) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Helper functions for setting up common mock expectations

// ExpectUpload expects one upload into folder and answers with url or err
func ExpectUpload(m *MockUploader, folder, url string, err error) {
	m.On("Upload", mock.Anything, mock.AnythingOfType("string"), folder).Return(url, err).Once()
}
