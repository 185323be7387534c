package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec(testSigningKey, time.Hour)

	token, err := codec.Issue("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestCodecExpiredTokenIsAnonymous(t *testing.T) {
	codec := NewCodec(testSigningKey, -time.Minute)

	token, err := codec.Issue("user-42")
	require.NoError(t, err)

	userID, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestCodecWrongKeyIsAnonymous(t *testing.T) {
	codec := NewCodec(testSigningKey, time.Hour)
	otherCodec := NewCodec([]byte("another-signing-key-entirely!!!!"), time.Hour)

	token, err := codec.Issue("user-42")
	require.NoError(t, err)

	userID, err := otherCodec.Decode(token)
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestCodecEmptyTokenIsAnonymous(t *testing.T) {
	codec := NewCodec(testSigningKey, time.Hour)

	userID, err := codec.Decode("")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestCarrierGetAllPreservesOrder(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: "first", Value: "1"})
	request.AddCookie(&http.Cookie{Name: "second", Value: "2"})

	carrier := NewCarrier(httptest.NewRecorder(), request)

	entries := carrier.GetAll()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: "first", Value: "1"}, entries[0])
	assert.Equal(t, Entry{Name: "second", Value: "2"}, entries[1])
}

func TestCarrierSetAllWritesCookies(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()

	carrier := NewCarrier(recorder, request)
	carrier.SetAll([]Entry{
		{
			Name:  "session",
			Value: "token-value",
			Options: CookieOptions{
				Path:     "/",
				HTTPOnly: true,
				SameSite: http.SameSiteLaxMode,
			},
		},
	})

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "token-value", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.True(t, cookies[0].HttpOnly)
}

func TestCarrierSetAllReplacesSameNameCookie(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	recorder := httptest.NewRecorder()

	carrier := NewCarrier(recorder, request)
	carrier.SetAll([]Entry{
		{Name: "session", Value: "stale", Options: CookieOptions{Path: "/"}},
		{Name: "other", Value: "kept", Options: CookieOptions{Path: "/"}},
	})
	carrier.SetAll([]Entry{
		{Name: "session", Value: "fresh", Options: CookieOptions{Path: "/"}},
	})

	// One Set-Cookie per name: the later session value replaces the earlier
	// one instead of stacking a second header.
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 2)

	byName := map[string]string{}
	for _, cookie := range cookies {
		byName[cookie.Name] = cookie.Value
	}
	assert.Equal(t, "fresh", byName["session"])
	assert.Equal(t, "kept", byName["other"])
}

func TestCarrierSetAllSurvivesRedirect(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	recorder := httptest.NewRecorder()

	carrier := NewCarrier(recorder, request)
	carrier.SetAll([]Entry{
		{Name: "session", Value: "refreshed", Options: CookieOptions{Path: "/"}},
	})

	http.Redirect(recorder, request, "/login", http.StatusFound)

	result := recorder.Result()
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Equal(t, "/login", result.Header.Get("Location"))

	cookies := result.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refreshed", cookies[0].Value)
}

func TestCarrierIsPerRequest(t *testing.T) {
	firstRequest := httptest.NewRequest(http.MethodGet, "/", nil)
	firstRequest.AddCookie(&http.Cookie{Name: "session", Value: "alice"})
	secondRequest := httptest.NewRequest(http.MethodGet, "/", nil)

	firstCarrier := NewCarrier(httptest.NewRecorder(), firstRequest)
	secondCarrier := NewCarrier(httptest.NewRecorder(), secondRequest)

	assert.Equal(t, "alice", firstCarrier.Get("session"))
	assert.Empty(t, secondCarrier.Get("session"))
}
