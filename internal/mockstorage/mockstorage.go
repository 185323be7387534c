// Package mockstorage provides a testify-based mock implementation
// of the internal storage interfaces used by the service and router packages.
// It is used for unit testing handlers by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

// StorageMock is a testify mock that implements all storage interfaces
// consumed by the auth, service and router packages.
type StorageMock struct {
	mock.Mock
}

// FindOrCreateUser mocks resolving a provider identity to a local user id.
func (m *StorageMock) FindOrCreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(*user.User), args.Error(1)
}

// GetUserBookmarks mocks fetching the owner's bookmark list.
func (m *StorageMock) GetUserBookmarks(ctx context.Context, ownerID string) ([]models.Bookmark, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]models.Bookmark), args.Error(1)
}

// InsertBookmark mocks persisting a new bookmark.
func (m *StorageMock) InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	args := m.Called(ctx, bookmark)
	return args.Error(0)
}

// DeleteBookmark mocks removing a bookmark scoped to its owner.
func (m *StorageMock) DeleteBookmark(ctx context.Context, bookmarkID, ownerID string) error {
	args := m.Called(ctx, bookmarkID, ownerID)
	return args.Error(0)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
