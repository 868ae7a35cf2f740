package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const userIDKey = "userID"

// Authenticator maps a bearer token to a local user id.
type Authenticator func(ctx context.Context, token string) (uint, error)

// UserID returns the authenticated user's id, or 0 outside an
// authenticated route.
func UserID(c echo.Context) uint {
	id, _ := c.Get(userIDKey).(uint)
	return id
}

// RequireAuth accepts a request when any of auths accepts its bearer token.
func RequireAuth(auths ...Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			for _, auth := range auths {
				id, err := auth(c.Request().Context(), parts[1])
				if err == nil && id != 0 {
					c.Set(userIDKey, id)
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}
	}
}

// JWTAuthenticator verifies HS256 tokens issued by IssueToken.
func JWTAuthenticator(secret string) Authenticator {
	return func(_ context.Context, tokenString string) (uint, error) {
		claims := &models.JwtCustomClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return 0, err
		}
		if !token.Valid || claims.UserID == 0 {
			return 0, errors.New("invalid token")
		}
		return claims.UserID, nil
	}
}

// IssueToken signs a token for user that expires after ttl.
func IssueToken(secret string, ttl time.Duration, user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
