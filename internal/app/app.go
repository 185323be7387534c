// Package app initializes and runs the bookmarks service.
// It configures logging, storage, the change feed, authentication, and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/auth"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/config"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/db/memorystorage"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/db/postgresdb"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/feed"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/models"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/router"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/service"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/session"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

type userKeeper interface {
	FindOrCreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

type bookmarksKeeper interface {
	GetUserBookmarks(ctx context.Context, ownerID string) ([]models.Bookmark, error)
	InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error
	DeleteBookmark(ctx context.Context, bookmarkID, ownerID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	bookmarksKeeper
	pinger
	Close() error
}

// App encapsulates the configuration, HTTP handler, storage backend,
// and background feed sources needed to run the bookmarks service.
type App struct {
	cfg             *config.Config
	db              storage
	httpHandler     http.Handler
	stopFeedSources context.CancelFunc
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the change feed hub and its background sources
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	signingSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, err
	}

	feedSourcesCtx, stopFeedSources := context.WithCancel(context.Background())
	app.stopFeedSources = stopFeedSources

	hub := feed.NewHub()
	var feedBus feed.Bus = hub

	if app.cfg.RedisAddr != "" {
		redisFeed := feed.NewRedisFeed(
			redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr}),
			hub,
		)
		redisFeed.Run(feedSourcesCtx)
		feedBus = redisFeed
	}

	if app.cfg.DatabaseDSN != "" {
		feed.NewPgListener(app.cfg.DatabaseDSN, hub).Run(feedSourcesCtx)
	}

	theAuth := auth.New(
		app.db,
		app.cfg.AuthCookieName,
		session.NewCodec(signingSecretKey, app.cfg.SessionTTL),
		oauthConfig(app.cfg),
		app.cfg.OAuthUserInfoURL,
	)

	app.httpHandler = router.New(
		service.New(app.db, feedBus),
		feedBus,
		theAuth,
		app.cfg.FeedHeartbeat,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		a.stopFeedSources()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func oauthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.OAuthEnabled() {
		return nil
	}

	return &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.BaseURL + "/auth/callback",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.OAuthAuthURL,
			TokenURL: cfg.OAuthTokenURL,
		},
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)
	}

	return memorystorage.New()
}
