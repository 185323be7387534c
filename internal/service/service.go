// Package service implements the owner-scoped bookmark operations:
// listing, creation with input normalization, and deletion.
// Every operation is scoped by the caller's resolved identity; the storage
// layer enforces the same scoping independently.
package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/feed"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
)

type bookmarksKeeper interface {
	GetUserBookmarks(ctx context.Context, ownerID string) ([]models.Bookmark, error)
	InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error
	DeleteBookmark(ctx context.Context, bookmarkID, ownerID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	bookmarksKeeper
	pinger
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// Service coordinates bookmark CRUD and change feed publication.
type Service struct {
	db   storage
	feed feed.Publisher
}

// New creates a Service over the given storage and feed publisher.
func New(db storage, feedPublisher feed.Publisher) *Service {
	return &Service{
		db:   db,
		feed: feedPublisher,
	}
}

// List returns the owner's bookmarks sorted by creation time descending.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.Bookmark, error) {
	return s.db.GetUserBookmarks(ctx, ownerID)
}

// Create normalizes the title and URL, validates them, and inserts the
// bookmark scoped to the owner. The created row is not returned: callers
// reload the list to observe it.
func (s *Service) Create(ctx context.Context, ownerID, title, rawURL string) error {
	normalizedTitle := strings.TrimSpace(title)
	if normalizedTitle == "" {
		return models.ErrEmptyTitle
	}
	if utf8.RuneCountInString(normalizedTitle) > models.MaxTitleLength {
		return models.ErrTitleTooLong
	}

	normalizedURL := NormalizeURL(rawURL)
	if normalizedURL == "" {
		return models.ErrEmptyURL
	}

	bookmark := &models.Bookmark{
		OwnerID: ownerID,
		Title:   normalizedTitle,
		URL:     normalizedURL,
	}
	if err := s.db.InsertBookmark(ctx, bookmark); err != nil {
		return err
	}

	s.feed.Publish(ctx, feed.Event{Owner: ownerID, Op: feed.OpInsert})

	return nil
}

// Delete removes the bookmark matching both id and owner.
// Returns models.ErrNotFound when no such row exists for this owner.
func (s *Service) Delete(ctx context.Context, ownerID, bookmarkID string) error {
	if err := s.db.DeleteBookmark(ctx, bookmarkID, ownerID); err != nil {
		return err
	}

	s.feed.Publish(ctx, feed.Event{Owner: ownerID, Op: feed.OpDelete})

	return nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// NormalizeURL trims the input and ensures it carries an http or https scheme.
// A string already starting with http:// or https:// (case-insensitive) is
// returned unchanged; any other non-empty string is prefixed with https://;
// an empty or whitespace-only string normalizes to empty.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	if schemePattern.MatchString(trimmed) {
		return trimmed
	}

	return "https://" + trimmed
}
