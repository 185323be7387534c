// Package auth provides the session-validation edge filter that runs in front
// of every protected route, and the handlers completing the OAuth sign-in
// handshake. Identity is carried in a signed session cookie which is
// refreshed on each validated request, including requests answered with a
// redirect.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/logger"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/session"
	"github.com/sharmaHarshit2000/smart-bookmarks/internal/user"
)

type userKeeper interface {
	FindOrCreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// UserKey is the context key holding the full authenticated user.
const UserKey ContextKey = "user"

const stateCookieName = "oauth_state"

// ErrOAuthDisabled is returned when the login flow is used without
// configured provider credentials.
var ErrOAuthDisabled = errors.New("OAuth provider is not configured")

// Auth handles session validation, the per-request auth gate,
// and the OAuth completion handshake.
type Auth struct {
	db         userKeeper
	cookieName string
	codec      *session.Codec

	// oauth is nil when no provider credentials are configured.
	oauth       *oauth2.Config
	userInfoURL string
}

// New creates an Auth handler over the given user storage, session cookie
// name and codec. oauthConfig may be nil, which disables the login flow.
func New(
	db userKeeper,
	cookieName string,
	codec *session.Codec,
	oauthConfig *oauth2.Config,
	userInfoURL string,
) *Auth {
	return &Auth{
		db:          db,
		cookieName:  cookieName,
		codec:       codec,
		oauth:       oauthConfig,
		userInfoURL: userInfoURL,
	}
}

type pathClass int

const (
	pathOther pathClass = iota
	pathLogin
	pathAuthCallback
	pathPublic
)

// classifyPath sorts a request path into the gate's routing classes.
// pathPublic covers static assets and the health probe, which never need an
// identity.
func classifyPath(path string) pathClass {
	switch {
	case strings.HasPrefix(path, "/static/") || path == "/favicon.ico" || path == "/ping":
		return pathPublic
	case path == "/login" || strings.HasPrefix(path, "/login/"):
		return pathLogin
	case strings.HasPrefix(path, "/auth/"):
		return pathAuthCallback
	}

	return pathOther
}

// resolveUser reads the session cookie, validates it against storage, and,
// for a valid session, writes a refreshed cookie back through the carrier.
// An anonymous request yields a user with an empty ID and no error.
func (a *Auth) resolveUser(r *http.Request, carrier *session.Carrier) (*user.User, error) {
	userID, err := a.codec.Decode(carrier.Get(a.cookieName))
	if err != nil || userID == "" {
		return &user.User{}, nil
	}

	usr, err := a.db.GetUserByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if usr.ID == "" {
		return usr, nil
	}

	a.writeSessionCookie(carrier, usr.ID)

	return usr, nil
}

func (a *Auth) writeSessionCookie(carrier *session.Carrier, userID string) {
	token, err := a.codec.Issue(userID)
	if err != nil {
		logger.Log.Debugln("Error calling the `a.codec.Issue()`: ", zap.Error(err))
		return
	}

	carrier.SetAll([]session.Entry{
		{
			Name:  a.cookieName,
			Value: token,
			Options: session.CookieOptions{
				Path:     "/",
				HTTPOnly: true,
				SameSite: http.SameSiteLaxMode,
			},
		},
	})
}

// Gate is the edge filter run before any protected handler.
// Per request it resolves the caller's identity and then either redirects or
// passes through:
//
//	anonymous + protected path  -> /login
//	anonymous + login/callback  -> pass
//	signed in + login           -> /
//	signed in + anything else   -> pass, user injected into context
//
// Static assets and the health probe skip identity resolution entirely.
// Any session refresh
// produced during resolution is already on the response when a redirect is
// written, so refreshed credentials survive redirects.
func (a *Auth) Gate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		class := classifyPath(request.URL.Path)
		if class == pathPublic {
			h.ServeHTTP(response, request)
			return
		}

		carrier := session.NewCarrier(response, request)
		usr, err := a.resolveUser(request, carrier)
		if err != nil {
			logger.Log.Debugln("Error calling the `a.resolveUser()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		if usr.ID == "" {
			if class == pathOther {
				http.Redirect(response, request, "/login", http.StatusFound)
				return
			}

			h.ServeHTTP(response, request)
			return
		}

		if class == pathLogin {
			http.Redirect(response, request, "/", http.StatusFound)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, usr.ID)
		ctx = context.WithValue(ctx, UserKey, usr)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// HandleLoginStart begins the OAuth handshake by redirecting the caller to
// the identity provider's consent page.
func (a *Auth) HandleLoginStart(response http.ResponseWriter, request *http.Request) {
	if a.oauth == nil {
		http.Error(response, "sign-in is not configured", http.StatusServiceUnavailable)
		return
	}

	state, err := randomState()
	if err != nil {
		logger.Log.Debugln("Error calling the `randomState()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.SetCookie(response, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(response, request, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback finishes the identity-provider handshake.
// A missing code or a state mismatch means an aborted flow and redirects back
// to /login. With a code present the exchange runs and the caller is sent
// home regardless of the exchange outcome; failures are only logged.
func (a *Auth) HandleOAuthCallback(response http.ResponseWriter, request *http.Request) {
	code := request.URL.Query().Get("code")
	if code == "" {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	if !a.stateMatches(request) {
		http.Redirect(response, request, "/login", http.StatusFound)
		return
	}

	carrier := session.NewCarrier(response, request)
	if err := a.exchangeCodeForSession(request.Context(), code, carrier); err != nil {
		logger.Log.Warnln("OAuth code exchange failed", zap.Error(err))
	}

	http.SetCookie(response, &http.Cookie{
		Name:   stateCookieName,
		Path:   "/auth/",
		MaxAge: -1,
	})

	http.Redirect(response, request, "/", http.StatusFound)
}

// HandleSignOut destroys the session cookie and sends the caller to /login.
func (a *Auth) HandleSignOut(response http.ResponseWriter, request *http.Request) {
	http.SetCookie(response, &http.Cookie{
		Name:     a.cookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(response, request, "/login", http.StatusSeeOther)
}

func (a *Auth) stateMatches(request *http.Request) bool {
	cookie, err := request.Cookie(stateCookieName)
	if err != nil {
		return false
	}

	return cookie.Value != "" && cookie.Value == request.URL.Query().Get("state")
}

// exchangeCodeForSession trades the one-time code for provider tokens, reads
// the userinfo endpoint, upserts the user and persists a session cookie
// through the carrier.
func (a *Auth) exchangeCodeForSession(ctx context.Context, code string, carrier *session.Carrier) error {
	if a.oauth == nil {
		return ErrOAuthDisabled
	}

	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return err
	}

	info, err := a.fetchUserInfo(ctx, token)
	if err != nil {
		return err
	}

	userID, err := a.db.FindOrCreateUser(ctx, &user.User{
		Email:   info.Email,
		Subject: info.Subject,
	})
	if err != nil {
		return err
	}

	a.writeSessionCookie(carrier, userID)

	return nil
}

type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

func (a *Auth) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	resp, err := a.oauth.Client(ctx, token).Get(a.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	info := &userInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, err
	}

	return info, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
