package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/membercli/internal/common"
	"github.com/dmitrijs2005/membercli/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, testLogger())
	require.NoError(t, err)
	return c, srv
}

func TestSignIn_Success(t *testing.T) {
	var gotBody map[string]string

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/user/signin", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"token":   "t1",
				"refresh": "r1",
				"user":    map[string]any{"id": 7, "username": "alice", "full_name": "Alice K"},
			},
		})
	}))

	res, err := c.SignIn(context.Background(), "alice", "secret")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "t1", res.Token)
	assert.Equal(t, "r1", res.RefreshToken)
	require.NotNil(t, res.User)
	assert.Equal(t, int64(7), res.User.ID)
	assert.Equal(t, "Alice K", res.User.FullName)

	assert.Equal(t, map[string]string{"username": "alice", "password": "secret"}, gotBody)
}

func TestSignIn_RejectedCredentials_NoError(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))

	res, err := c.SignIn(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.User)
}

func TestSignIn_ServerDown_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewHTTPClient(srv.URL, testLogger())
	require.NoError(t, err)
	srv.Close()

	_, err = c.SignIn(context.Background(), "a", "b")
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestCheckSignIn_SendsBearerAndCookies(t *testing.T) {
	var gotAuth string
	var gotCookies []*http.Cookie

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/user/signin" {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"token": "t1", "user": map[string]any{"id": 1, "username": "a"}},
			})
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotCookies = r.Cookies()
		json.NewEncoder(w).Encode(map[string]any{
			"success":         true,
			"isAuthenticated": true,
			"user":            map[string]any{"id": 1, "username": "a"},
		})
	}))

	_, err := c.SignIn(context.Background(), "a", "b")
	require.NoError(t, err)
	c.SetAuthCookies("t1", "", time.Time{})

	res, err := c.CheckSignIn(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, "Bearer t1", gotAuth)
	require.Len(t, gotCookies, 1)
	assert.Equal(t, "token", gotCookies[0].Name)
	assert.Equal(t, "t1", gotCookies[0].Value)
}

func TestClearAuthCookies_RemovesCookies(t *testing.T) {
	var gotCookies []*http.Cookie

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookies = r.Cookies()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "isAuthenticated": false})
	}))

	c.SetAuthCookies("t1", "r1", time.Now().Add(time.Hour))
	c.ClearAuthCookies()

	_, err := c.CheckSignIn(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotCookies)
}

func TestDoJSON_RefreshesExpiredTokenAndRetries(t *testing.T) {
	var checkCalls int
	var refreshCalls int
	var lastAuth string

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/signin":
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"token": "old", "refresh": "ref1", "user": map[string]any{"id": 1}},
			})
		case "/api/token/refresh":
			refreshCalls++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "ref1", body["refresh"])
			json.NewEncoder(w).Encode(map[string]any{"access": "new", "refresh": "ref2"})
		case "/api/user/check_signin":
			checkCalls++
			lastAuth = r.Header.Get("Authorization")
			if checkCalls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{"code": "token_not_valid"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "isAuthenticated": true})
		}
	}))

	_, err := c.SignIn(context.Background(), "a", "b")
	require.NoError(t, err)

	res, err := c.CheckSignIn(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Authenticated)
	assert.Equal(t, 2, checkCalls)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, "Bearer new", lastAuth)
}

func TestDoJSON_401WithoutRefreshToken_NoRetry(t *testing.T) {
	var calls int

	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"code": "token_not_valid", "success": false, "isAuthenticated": false})
	}))

	res, err := c.CheckSignIn(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t, 1, calls)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("k"))
	require.NoError(t, err)

	got, ok := tokenExpiry(signed)
	require.True(t, ok)
	assert.Equal(t, exp.Unix(), got.Unix())

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)
}
