// Package session translates between a request's cookie set and a validated
// session token. The Carrier adapts one request/response pair; the Codec signs
// and parses the session cookie value as a JWT.
package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Entry is a single name/value credential pair carried via cookies.
type Entry struct {
	Name  string
	Value string

	Options CookieOptions
}

// CookieOptions controls how an Entry is serialized onto the response.
type CookieOptions struct {
	Path     string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// Carrier adapts a single inbound request and its outbound response so the
// session layer can both read existing credentials and persist refreshed ones.
// A Carrier must be constructed fresh per request and never shared: reusing
// one across requests would write one user's session onto another's response.
type Carrier struct {
	request  *http.Request
	response http.ResponseWriter
}

// NewCarrier builds a Carrier for one request/response pair.
func NewCarrier(w http.ResponseWriter, r *http.Request) *Carrier {
	return &Carrier{
		request:  r,
		response: w,
	}
}

// GetAll returns the request's cookies as an ordered sequence of entries.
func (c *Carrier) GetAll() []Entry {
	cookies := c.request.Cookies()
	entries := make([]Entry, 0, len(cookies))
	for _, cookie := range cookies {
		entries = append(entries, Entry{
			Name:  cookie.Name,
			Value: cookie.Value,
		})
	}

	return entries
}

// Get returns the value of the named cookie, or "" when absent.
func (c *Carrier) Get(name string) string {
	cookie, err := c.request.Cookie(name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// SetAll applies each entry onto the outbound response, replacing any
// Set-Cookie header already queued for the same name so each cookie is
// written at most once per response. Entries written here ride on whatever
// response is eventually produced, redirects included.
func (c *Carrier) SetAll(entries []Entry) {
	for _, entry := range entries {
		c.dropQueuedCookie(entry.Name)
		http.SetCookie(c.response, &http.Cookie{
			Name:     entry.Name,
			Value:    entry.Value,
			Path:     entry.Options.Path,
			MaxAge:   entry.Options.MaxAge,
			HttpOnly: entry.Options.HTTPOnly,
			Secure:   entry.Options.Secure,
			SameSite: entry.Options.SameSite,
		})
	}
}

func (c *Carrier) dropQueuedCookie(name string) {
	queued := c.response.Header()["Set-Cookie"]
	if len(queued) == 0 {
		return
	}

	kept := queued[:0:0]
	for _, header := range queued {
		if cookieName, _, found := strings.Cut(header, "="); !found || cookieName != name {
			kept = append(kept, header)
		}
	}

	if len(kept) == 0 {
		c.response.Header().Del("Set-Cookie")
		return
	}
	c.response.Header()["Set-Cookie"] = kept
}

// Claims represents the JWT claims stored in the session cookie.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Codec signs and parses session cookie values.
type Codec struct {
	signingSecretKey []byte
	ttl              time.Duration
}

// NewCodec creates a Codec with the given HMAC signing key and session TTL.
func NewCodec(signingSecretKey []byte, ttl time.Duration) *Codec {
	return &Codec{
		signingSecretKey: signingSecretKey,
		ttl:              ttl,
	}
}

// Issue produces a signed session token for the given user with a fresh expiry.
func (c *Codec) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(c.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Decode parses a session token and returns the user ID it carries.
// An invalid, expired or empty token yields an empty user ID and no error:
// the caller treats that as an anonymous request, not a failure.
func (c *Codec) Decode(tokenString string) (string, error) {
	if tokenString == "" {
		return "", nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", nil
	}

	return claims.UserID, nil
}
