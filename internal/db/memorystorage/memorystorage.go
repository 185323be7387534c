// Package memorystorage is an in-memory implementation of the bookmarks
// storage. It backs tests and DSN-less development runs; the Postgres
// implementation is the one meant for real deployments.
package memorystorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

// MemoryStorage keeps users and bookmarks in maps guarded by one mutex.
type MemoryStorage struct {
	mu             sync.RWMutex
	users          map[string]*user.User
	usersBySubject map[string]string
	bookmarks      map[string]models.Bookmark
}

// New creates an empty MemoryStorage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:          map[string]*user.User{},
		usersBySubject: map[string]string{},
		bookmarks:      map[string]models.Bookmark{},
	}, nil
}

// FindOrCreateUser resolves a provider identity to a local user id,
// creating the user on first sign-in.
func (s *MemoryStorage) FindOrCreateUser(ctx context.Context, usr *user.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.usersBySubject[usr.Subject]; ok {
		s.users[existingID].Email = usr.Email
		return existingID, nil
	}

	id := uuid.New().String()
	s.users[id] = &user.User{
		ID:      id,
		Email:   usr.Email,
		Subject: usr.Subject,
	}
	if usr.Subject != "" {
		s.usersBySubject[usr.Subject] = id
	}

	return id, nil
}

// GetUserByID returns the stored user, or a user with an empty ID when absent.
func (s *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[userID]
	if !ok {
		return &user.User{ID: ""}, nil
	}

	copied := *usr

	return &copied, nil
}

// GetUserBookmarks returns the owner's bookmarks, newest first with stable ties.
func (s *MemoryStorage) GetUserBookmarks(ctx context.Context, ownerID string) ([]models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.Bookmark{}
	for _, bookmark := range s.bookmarks {
		if bookmark.OwnerID == ownerID {
			result = append(result, bookmark)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// InsertBookmark stores a new bookmark, assigning id and created_at.
func (s *MemoryStorage) InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmark.ID = uuid.New().String()
	bookmark.CreatedAt = time.Now().UTC()
	s.bookmarks[bookmark.ID] = *bookmark

	return nil
}

// DeleteBookmark removes the bookmark matching both id and owner.
func (s *MemoryStorage) DeleteBookmark(ctx context.Context, bookmarkID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmark, ok := s.bookmarks[bookmarkID]
	if !ok || bookmark.OwnerID != ownerID {
		return models.ErrNotFound
	}

	delete(s.bookmarks, bookmarkID)

	return nil
}

// Ping always succeeds for the in-memory storage.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
