package router

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/auth"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/db/memorystorage"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/feed"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/service"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

func TestMain(m *testing.M) {
	if err := logger.Init("debug"); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

// mockAuth stands in for the real gate: it injects a fixed user into the
// request context and skips the redirect logic, which has its own tests.
// An empty userID leaves the context untouched so handlers see an
// unauthenticated request.
type mockAuth struct {
	userID string
	email  string
}

func (m *mockAuth) Gate(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.userID == "" {
			h.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), auth.UserIDKey, m.userID)
		ctx = context.WithValue(ctx, auth.UserKey, &user.User{ID: m.userID, Email: m.email})
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *mockAuth) HandleLoginStart(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusFound)
}

func (m *mockAuth) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusFound)
}

func (m *mockAuth) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSeeOther)
}

type testRouterOption func(*testRouterOptions)

type testRouterOptions struct {
	userID        string
	email         string
	feedHeartbeat time.Duration
}

func withUserID(userID string) testRouterOption {
	return func(o *testRouterOptions) {
		o.userID = userID
	}
}

func withEmail(email string) testRouterOption {
	return func(o *testRouterOptions) {
		o.email = email
	}
}

func withFeedHeartbeat(heartbeat time.Duration) testRouterOption {
	return func(o *testRouterOptions) {
		o.feedHeartbeat = heartbeat
	}
}

func setupTestRouter(t *testing.T, options ...testRouterOption) (*httptest.Server, *service.Service) {
	t.Helper()

	opts := &testRouterOptions{
		userID:        "user-1",
		email:         "user@example.com",
		feedHeartbeat: 30 * time.Second,
	}
	for _, option := range options {
		option(opts)
	}

	db, err := memorystorage.New()
	require.NoError(t, err)

	hub := feed.NewHub()
	svc := service.New(db, hub)

	router := New(
		svc,
		hub,
		&mockAuth{userID: opts.userID, email: opts.email},
		opts.feedHeartbeat,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, svc
}

func TestGetApibookmarksEmpty(t *testing.T) {
	srv, _ := setupTestRouter(t)

	listResponse := models.BookmarkListResponse{}
	resp, err := resty.New().R().
		SetResult(&listResponse).
		Get(srv.URL + "/api/bookmarks")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")
	assert.Empty(t, listResponse.Bookmarks)
}

func TestPostApibookmarksThenList(t *testing.T) {
	srv, _ := setupTestRouter(t)

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.CreateBookmarkRequest{Title: "  My Site  ", URL: "example.com"}).
		Post(srv.URL + "/api/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	listResponse := models.BookmarkListResponse{}
	resp, err = resty.New().R().
		SetResult(&listResponse).
		Get(srv.URL + "/api/bookmarks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	require.Len(t, listResponse.Bookmarks, 1)
	assert.Equal(t, "My Site", listResponse.Bookmarks[0].Title)
	assert.Equal(t, "https://example.com", listResponse.Bookmarks[0].URL)
	assert.Equal(t, "user-1", listResponse.Bookmarks[0].OwnerID)
}

func TestPostApibookmarksValidation(t *testing.T) {
	testCases := []struct {
		name         string
		body         models.CreateBookmarkRequest
		expectedCode int
	}{
		{
			name:         "empty_title",
			body:         models.CreateBookmarkRequest{Title: "   ", URL: "example.com"},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "empty_url",
			body:         models.CreateBookmarkRequest{Title: "My Site", URL: ""},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "title_too_long",
			body:         models.CreateBookmarkRequest{Title: strings.Repeat("a", models.MaxTitleLength+1), URL: "example.com"},
			expectedCode: http.StatusUnprocessableEntity,
		},
	}

	srv, _ := setupTestRouter(t)

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			errorResponse := models.ErrorResponse{}
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				SetError(&errorResponse).
				Post(srv.URL + "/api/bookmarks")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.NotEmpty(t, errorResponse.Error)
		})
	}
}

func TestPostApibookmarksMalformedJSON(t *testing.T) {
	srv, _ := setupTestRouter(t)

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"title": `).
		Post(srv.URL + "/api/bookmarks")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestDeleteApibookmark(t *testing.T) {
	srv, svc := setupTestRouter(t)

	require.NoError(t, svc.Create(context.Background(), "user-1", "My Site", "example.com"))

	bookmarks, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)

	resp, err := resty.New().R().
		Delete(srv.URL + "/api/bookmarks/" + bookmarks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	bookmarks, err = svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestDeleteApibookmarkNotFound(t *testing.T) {
	srv, _ := setupTestRouter(t)

	errorResponse := models.ErrorResponse{}
	resp, err := resty.New().R().
		SetError(&errorResponse).
		Delete(srv.URL + "/api/bookmarks/no-such-id")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.NotEmpty(t, errorResponse.Error)
}

func TestDeleteApibookmarkOtherOwner(t *testing.T) {
	srv, svc := setupTestRouter(t, withUserID("intruder"))

	require.NoError(t, svc.Create(context.Background(), "user-1", "My Site", "example.com"))

	bookmarks, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)

	resp, err := resty.New().R().
		Delete(srv.URL + "/api/bookmarks/" + bookmarks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	bookmarks, err = svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)
}

func TestAPIRequiresAuthentication(t *testing.T) {
	srv, _ := setupTestRouter(t, withUserID(""))

	testCases := []struct {
		name    string
		request func() (*resty.Response, error)
	}{
		{
			name: "list",
			request: func() (*resty.Response, error) {
				return resty.New().R().Get(srv.URL + "/api/bookmarks")
			},
		},
		{
			name: "create",
			request: func() (*resty.Response, error) {
				return resty.New().R().
					SetHeader("Content-Type", "application/json").
					SetBody(models.CreateBookmarkRequest{Title: "t", URL: "example.com"}).
					Post(srv.URL + "/api/bookmarks")
			},
		},
		{
			name: "delete",
			request: func() (*resty.Response, error) {
				return resty.New().R().Delete(srv.URL + "/api/bookmarks/some-id")
			},
		},
		{
			name: "events",
			request: func() (*resty.Response, error) {
				return resty.New().R().Get(srv.URL + "/api/bookmarks/events")
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := testCase.request()
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
		})
	}
}

func TestGetMainPage(t *testing.T) {
	srv, _ := setupTestRouter(t, withEmail("reader@example.com"))

	resp, err := resty.New().R().Get(srv.URL + "/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, string(resp.Body()), "reader@example.com")
}

func TestGetLoginPage(t *testing.T) {
	srv, _ := setupTestRouter(t, withUserID(""))

	resp, err := resty.New().R().Get(srv.URL + "/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
}

func TestGetPing(t *testing.T) {
	srv, _ := setupTestRouter(t)

	resp, err := resty.New().R().Get(srv.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetApibookmarksGzippedResponse(t *testing.T) {
	srv, svc := setupTestRouter(t)

	require.NoError(t, svc.Create(context.Background(), "user-1", "My Site", "example.com"))

	// resty transparently decompresses, so assert on the parsed body and
	// leave the encoding negotiation to the middleware.
	listResponse := models.BookmarkListResponse{}
	resp, err := resty.New().R().
		SetHeader("Accept-Encoding", "gzip").
		SetResult(&listResponse).
		Get(srv.URL + "/api/bookmarks")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, listResponse.Bookmarks, 1)
	assert.Equal(t, "My Site", listResponse.Bookmarks[0].Title)
}

func TestGetApibookmarkeventsStream(t *testing.T) {
	srv, svc := setupTestRouter(t, withFeedHeartbeat(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/bookmarks/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.NoError(t, svc.Create(context.Background(), "user-1", "My Site", "example.com"))

	var eventLine, dataLine string
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event:") {
			eventLine = strings.TrimSpace(line)
			dataLine, err = reader.ReadString('\n')
			require.NoError(t, err)
			break
		}
	}

	assert.Equal(t, "event: change", eventLine)
	assert.Contains(t, dataLine, fmt.Sprintf(`"owner":%q`, "user-1"))
	assert.Contains(t, dataLine, `"op":"insert"`)
}
