package stubapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/octabyte/license-client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, h http.Handler) models.AuthResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func get(h http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	mutate(req)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionFromBearerOrCookie(t *testing.T) {
	s := New()
	s.AddAccount(models.User{Email: "a@x.com"}, "p")
	pair := login(t, s.Handler())

	rec := get(s.Handler(), "/v1/me", func(r *http.Request) {
		r.Header.Set(Authorization, "Bearer "+pair.AccessToken)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(s.Handler(), "/v1/me", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: pair.AccessToken})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	s := New()
	s.AddAccount(models.User{Email: "a@x.com"}, "p")
	pair := login(t, s.Handler())

	rec := get(s.Handler(), "/v1/me", func(r *http.Request) {
		r.Header.Set(Authorization, "Bearer "+pair.RefreshToken)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
}

func TestExpiredAccessTokensAreRejected(t *testing.T) {
	s := New()
	s.AddAccount(models.User{Email: "a@x.com"}, "p")
	pair := login(t, s.Handler())
	s.ExpireAccessTokens()

	rec := get(s.Handler(), "/v1/me", func(r *http.Request) {
		r.Header.Set(Authorization, "Bearer "+pair.AccessToken)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, s.RefreshTokenValid(pair.RefreshToken))
}
