package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func serve(t *testing.T, header string, auths ...Authenticator) (*httptest.ResponseRecorder, uint) {
	t.Helper()
	e := echo.New()
	var seen uint
	e.GET("/me", func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusNoContent)
	}, RequireAuth(auths...))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := IssueToken(secret, time.Hour, &models.User{ID: 42, Email: "a@example.com"})
	require.NoError(t, err)

	rec, seen := serve(t, "Bearer "+token, JWTAuthenticator(secret))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(42), seen)
}

func TestJWTRejected(t *testing.T) {
	expired, err := IssueToken(secret, -time.Minute, &models.User{ID: 42})
	require.NoError(t, err)
	forged, err := IssueToken("other-secret", time.Hour, &models.User{ID: 42})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + forged},
		{"garbage", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, seen := serve(t, tt.header, JWTAuthenticator(secret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Zero(t, seen)
		})
	}
}

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f[idToken]
	if !ok {
		return nil, errors.New("invalid id token")
	}
	return &auth.Token{UID: uid}, nil
}

type fakeFirebaseUsers map[string]uint

func (f fakeFirebaseUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	id, ok := f[uid]
	if !ok {
		return nil, apperrors.NotFound("no user for %s", uid)
	}
	return &models.User{ID: id}, nil
}

func TestFirebaseFallback(t *testing.T) {
	fb := FirebaseAuthenticator(fakeVerifier{"fb-token": "uid-7", "orphan": "uid-x"}, fakeFirebaseUsers{"uid-7": 7})

	rec, seen := serve(t, "Bearer fb-token", JWTAuthenticator(secret), fb)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(7), seen)

	rec, _ = serve(t, "Bearer orphan", JWTAuthenticator(secret), fb)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
