package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/middleware"
	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/anonto42/gatherly/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   middleware.IDTokenVerifier
	jwtSecret      string
	tokenTTL       time.Duration
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables /firebase-login.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth middleware.IDTokenVerifier, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		jwtSecret:      jwtSecret,
		tokenTTL:       tokenTTL,
		log:            log,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		return err
	}
	h.log.Info().Uint("user_id", user.ID).Msg("user signed up")
	return h.respondWithToken(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthenticated("invalid email or password")
		}
		return err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return apperrors.Unauthenticated("invalid email or password")
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

// FirebaseLogin verifies a Firebase ID token, links or creates the local
// account and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Firebase login is not configured")
	}
	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return apperrors.Unauthenticated("invalid Firebase ID token")
	}
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	uid := token.UID

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, uid)
	switch {
	case err == nil:
		if name != "" && name != user.Name {
			user.Name = name
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return err
			}
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if email == "" {
			return apperrors.Validation("Firebase account has no email address")
		}
		user, err = h.userRepository.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			user.FirebaseUID = &uid
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return err
			}
		case errors.Is(err, apperrors.ErrNotFound):
			user = &models.User{Name: name, Email: email, FirebaseUID: &uid}
			if err := h.userRepository.CreateUser(ctx, user); err != nil {
				return err
			}
		default:
			return err
		}
	default:
		return err
	}
	return h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := middleware.IssueToken(h.jwtSecret, h.tokenTTL, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(status, echo.Map{"token": token, "user": user})
}
