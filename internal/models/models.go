// Package models defines the bookmark entity, the JSON request and response
// shapes of the HTTP API, and the sentinel errors shared between the service,
// storage and client layers.
package models

import (
	"errors"
	"time"
)

// MaxTitleLength is the upper bound for a bookmark title, in characters.
const MaxTitleLength = 120

// Bookmark is a saved link owned by exactly one user.
// ID, OwnerID and CreatedAt are server-assigned and immutable.
type Bookmark struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBookmarkRequest is the payload of POST /api/bookmarks.
type CreateBookmarkRequest struct {
	Title string `json:"title" validate:"required,max=120"`
	URL   string `json:"url" validate:"required"`
}

// BookmarkListResponse is the payload of GET /api/bookmarks.
type BookmarkListResponse struct {
	Bookmarks []Bookmark `json:"bookmarks"`
}

// ErrorResponse carries a single error message to the client.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMemory
)

// ErrNotFound is returned when a bookmark does not exist for the given owner.
var ErrNotFound = errors.New("bookmark not found")

// ErrEmptyTitle is returned when the trimmed title is empty.
var ErrEmptyTitle = errors.New("bookmark title is empty")

// ErrEmptyURL is returned when the normalized URL is empty.
var ErrEmptyURL = errors.New("bookmark URL is empty")

// ErrTitleTooLong is returned when the trimmed title exceeds MaxTitleLength.
var ErrTitleTooLong = errors.New("bookmark title is too long")
