// Package listview implements the client half of the bookmarks system: a
// typed HTTP client for the owner-scoped API, a change feed subscriber over
// server-sent events, and the list view state machine that keeps an
// in-memory bookmark list consistent with the server of record.
package listview

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
)

// Client performs typed CRUD calls against the bookmarks API.
// The session cookie set at construction scopes every call to its owner.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client for the given service base URL, authenticating
// with the provided session cookie.
func NewClient(baseURL string, sessionCookie *http.Cookie) *Client {
	httpClient := resty.New().SetBaseURL(baseURL)
	if sessionCookie != nil {
		httpClient.SetCookie(sessionCookie)
	}

	return &Client{
		http: httpClient,
	}
}

// List fetches the caller's bookmarks, newest first.
func (c *Client) List(ctx context.Context) ([]models.Bookmark, error) {
	result := models.BookmarkListResponse{}
	errPayload := models.ErrorResponse{}

	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errPayload).
		Get("/api/bookmarks")
	if err != nil {
		return nil, err
	}
	if response.IsError() {
		return nil, storeError(response, errPayload)
	}

	return result.Bookmarks, nil
}

// Create inserts a bookmark. The created row is not returned; callers reload
// the list to observe it.
func (c *Client) Create(ctx context.Context, title, rawURL string) error {
	errPayload := models.ErrorResponse{}

	response, err := c.http.R().
		SetContext(ctx).
		SetBody(models.CreateBookmarkRequest{Title: title, URL: rawURL}).
		SetError(&errPayload).
		Post("/api/bookmarks")
	if err != nil {
		return err
	}
	if response.IsError() {
		return storeError(response, errPayload)
	}

	return nil
}

// Delete removes the bookmark with the given id.
func (c *Client) Delete(ctx context.Context, bookmarkID string) error {
	errPayload := models.ErrorResponse{}

	response, err := c.http.R().
		SetContext(ctx).
		SetError(&errPayload).
		Delete("/api/bookmarks/" + bookmarkID)
	if err != nil {
		return err
	}
	if response.IsError() {
		return storeError(response, errPayload)
	}

	return nil
}

// SignOut terminates the server-side session.
func (c *Client) SignOut(ctx context.Context) error {
	response, err := c.http.R().
		SetContext(ctx).
		Post("/auth/signout")
	if err != nil {
		return err
	}
	if response.IsError() {
		return fmt.Errorf("sign-out failed with status %d", response.StatusCode())
	}

	return nil
}

func storeError(response *resty.Response, payload models.ErrorResponse) error {
	if payload.Error != "" {
		return fmt.Errorf("store error: %s", payload.Error)
	}

	return fmt.Errorf("store error: unexpected status %d", response.StatusCode())
}
