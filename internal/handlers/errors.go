package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindValidation:      http.StatusBadRequest,
	apperrors.KindUnauthenticated: http.StatusUnauthorized,
	apperrors.KindAuthorization:   http.StatusForbidden,
	apperrors.KindNotFound:        http.StatusNotFound,
	apperrors.KindConflict:        http.StatusConflict,
	apperrors.KindState:           http.StatusUnprocessableEntity,
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewHTTPErrorHandler maps domain errors to status codes. Anything outside
// the taxonomy is logged and reported as a 500 without details.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorResponse{Error: http.StatusText(status)}

		var httpErr *echo.HTTPError
		var appErr *apperrors.Error
		switch {
		case errors.As(err, &appErr):
			if code, ok := statusByKind[appErr.Kind]; ok {
				status = code
				body = ErrorResponse{Error: appErr.Error(), Code: string(appErr.Kind), Reason: string(appErr.Reason)}
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body = ErrorResponse{Error: msg}
			} else {
				body = ErrorResponse{Error: http.StatusText(status)}
			}
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}

// getUserIDFromContext returns the id set by the auth middleware.
func getUserIDFromContext(c echo.Context) uint {
	return middleware.UserID(c)
}

func parseUserID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid user id %q", c.Param(name))
	}
	return uint(id), nil
}

// bindAndValidate decodes the request body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return &apperrors.Error{Kind: apperrors.KindValidation, Message: "invalid request", Err: err}
	}
	return nil
}
