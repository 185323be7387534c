// Package router wires the HTTP surface of the bookmarks service: the two
// pages, the owner-scoped JSON API, and the server-sent-events change feed.
package router

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/auth"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/authenticator"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/feed"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/gzippedhttp"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.gohtml"))

type bookmarkService interface {
	List(ctx context.Context, ownerID string) ([]models.Bookmark, error)
	Create(ctx context.Context, ownerID, title, rawURL string) error
	Delete(ctx context.Context, ownerID, bookmarkID string) error
	Ping(ctx context.Context) error
}

// Router holds the dependencies of every HTTP handler.
type Router struct {
	service       bookmarkService
	feed          feed.Subscriber
	feedHeartbeat time.Duration
}

// New assembles the chi mux with logging and auth-gate middleware applied to
// every route.
func New(
	svc bookmarkService,
	feedSubscriber feed.Subscriber,
	theAuth authenticator.Authenticator,
	feedHeartbeat time.Duration,
) *chi.Mux {
	myRouter := &Router{
		service:       svc,
		feed:          feedSubscriber,
		feedHeartbeat: feedHeartbeat,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		theAuth.Gate,
	)

	router.Get(`/`, myRouter.GetMainPage)
	router.Get(`/login`, myRouter.GetLoginPage)
	router.Get(`/ping`, myRouter.GetPing)

	router.Get(`/auth/login`, theAuth.HandleLoginStart)
	router.Get(`/auth/callback`, theAuth.HandleOAuthCallback)
	router.Post(`/auth/signout`, theAuth.HandleSignOut)

	router.With(gzippedhttp.GzipResponse).Get(`/api/bookmarks`, myRouter.GetApibookmarks)
	router.Post(`/api/bookmarks`, myRouter.PostApibookmarks)
	router.Delete(`/api/bookmarks/{bookmarkID}`, myRouter.DeleteApibookmark)
	router.Get(`/api/bookmarks/events`, myRouter.GetApibookmarkevents)

	return router
}

// GetMainPage renders the bookmark list shell for the signed-in user.
// The gate guarantees a user is present; the fallback redirect only covers
// misconfigured test setups.
func (rt *Router) GetMainPage(response http.ResponseWriter, request *http.Request) {
	usr, ok := request.Context().Value(auth.UserKey).(*user.User)
	if !ok || usr.ID == "" {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(response, "bookmarks.gohtml", usr); err != nil {
		logger.Log.Debugln("Error rendering the bookmarks page: ", zap.Error(err))
	}
}

// GetLoginPage renders the public sign-in page.
func (rt *Router) GetLoginPage(response http.ResponseWriter, request *http.Request) {
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(response, "login.gohtml", nil); err != nil {
		logger.Log.Debugln("Error rendering the login page: ", zap.Error(err))
	}
}

// GetPing reports storage health.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.service.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `rt.service.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApibookmarks returns the caller's bookmarks, newest first.
func (rt *Router) GetApibookmarks(response http.ResponseWriter, request *http.Request) {
	ownerID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || ownerID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	bookmarks, err := rt.service.List(request.Context(), ownerID)
	if err != nil {
		logger.Log.Debugln("Error calling the `rt.service.List()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(response, http.StatusOK, models.BookmarkListResponse{Bookmarks: bookmarks})
}

// PostApibookmarks creates a bookmark for the caller. The created row is not
// returned; clients reload the list to observe it.
func (rt *Router) PostApibookmarks(response http.ResponseWriter, request *http.Request) {
	ownerID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || ownerID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload models.CreateBookmarkRequest
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		logger.Log.Debugln("Error decoding the create request: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	err := rt.service.Create(request.Context(), ownerID, payload.Title, payload.URL)
	switch {
	case errors.Is(err, models.ErrEmptyTitle),
		errors.Is(err, models.ErrEmptyURL),
		errors.Is(err, models.ErrTitleTooLong):
		writeJSONError(response, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		logger.Log.Debugln("Error calling the `rt.service.Create()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteHeader(http.StatusCreated)
}

// DeleteApibookmark removes one bookmark scoped to the caller.
func (rt *Router) DeleteApibookmark(response http.ResponseWriter, request *http.Request) {
	ownerID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || ownerID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	bookmarkID := chi.URLParam(request, "bookmarkID")

	err := rt.service.Delete(request.Context(), ownerID, bookmarkID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSONError(response, http.StatusNotFound, err.Error())
		return
	case err != nil:
		logger.Log.Debugln("Error calling the `rt.service.Delete()`: ", zap.Error(err))
		writeJSONError(response, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetApibookmarkevents streams change notifications for the caller's
// bookmarks as server-sent events. Every event means "reload the list"; the
// stream carries no row payloads. The subscription is released when the
// client disconnects.
func (rt *Router) GetApibookmarkevents(response http.ResponseWriter, request *http.Request) {
	ownerID, ok := request.Context().Value(auth.UserIDKey).(string)
	if !ok || ownerID == "" {
		response.WriteHeader(http.StatusUnauthorized)
		return
	}

	flusher, ok := response.(http.Flusher)
	if !ok {
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	events, cancel := rt.feed.Subscribe(ownerID)
	defer cancel()

	response.Header().Set("Content-Type", "text/event-stream")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)

	fmt.Fprint(response, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(rt.feedHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-request.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(response, ": ping\n\n")
			flusher.Flush()

		case event, open := <-events:
			if !open {
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}

			fmt.Fprintf(response, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeJSON(response http.ResponseWriter, statusCode int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response: ", zap.Error(err))
	}
}

func writeJSONError(response http.ResponseWriter, statusCode int, message string) {
	writeJSON(response, statusCode, models.ErrorResponse{Error: message})
}
