package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	userID   string
	username string
	err      error
}

func (v *stubValidator) ValidateToken(token string) (string, string, error) {
	if v.err != nil {
		return "", "", v.err
	}
	return v.userID, v.username, nil
}

func protected(t *testing.T, v *stubValidator, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	auth := NewAuth(v)
	rec := httptest.NewRecorder()
	auth.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, username, ok := Identity(r.Context())
		require.True(t, ok)
		w.Write([]byte(userID + ":" + username))
	})).ServeHTTP(rec, req)
	return rec
}

func TestAuthFromHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/workspaces", nil)
	req.Header.Set("Authorization", "Bearer some-token")

	rec := protected(t, &stubValidator{userID: "u1", username: "alice"}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1:alice", rec.Body.String())
}

func TestAuthFromQueryParam(t *testing.T) {
	// Websocket upgrades pass the token as a query param.
	req := httptest.NewRequest("GET", "/ws?token=some-token", nil)

	rec := protected(t, &stubValidator{userID: "u1", username: "alice"}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMissingToken(t *testing.T) {
	auth := NewAuth(&stubValidator{userID: "u1", username: "alice"})
	rec := httptest.NewRecorder()
	auth.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/api/workspaces", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	auth := NewAuth(&stubValidator{err: errors.New("expired")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/workspaces", nil)
	req.Header.Set("Authorization", "Bearer bad")
	auth.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
