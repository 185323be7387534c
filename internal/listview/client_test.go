package listview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
)

func TestClientSendsSessionCookie(t *testing.T) {
	var receivedCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("bookmarks_session"); err == nil {
			receivedCookie = cookie.Value
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(models.BookmarkListResponse{}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &http.Cookie{Name: "bookmarks_session", Value: "token-1"})

	_, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", receivedCookie)
}

func TestClientListParsesBookmarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/bookmarks", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(models.BookmarkListResponse{
			Bookmarks: []models.Bookmark{
				{ID: "a", Title: "first", URL: "https://example.com/a"},
				{ID: "b", Title: "second", URL: "https://example.com/b"},
			},
		}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	bookmarks, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, "first", bookmarks[0].Title)
}

func TestClientCreateSurfacesValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		require.NoError(t, json.NewEncoder(w).Encode(models.ErrorResponse{Error: "the title must not be empty"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	err := client.Create(context.Background(), "", "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the title must not be empty")
}

func TestClientDeleteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/bookmarks/no-such-id", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		require.NoError(t, json.NewEncoder(w).Encode(models.ErrorResponse{Error: "bookmark not found"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	err := client.Delete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bookmark not found")
}
