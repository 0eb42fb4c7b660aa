package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/api/backend"
	"github.com/shopassist/shopchat/internal/pkg/validation"
)

// errorResponse is the summary error envelope: {"detail": "<message>"}.
type errorResponse struct {
	Detail string `json:"detail"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders field validation failures as {"<field>": ["<message>", ...]}.
//   - Maps known backend errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if fields := fieldErrors(err); fields != nil {
			_ = c.JSON(http.StatusBadRequest, fields)
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Detail: msg})
	}
}

func fieldErrors(err error) map[string][]string {
	var fe *backend.FieldError
	if errors.As(err, &fe) {
		return fe.Fields
	}
	if fields := validation.Fields(err); fields != nil {
		return fields
	}
	return nil
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, backend.ErrSessionNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, backend.ErrInvalidCredentials):
		return http.StatusUnauthorized, "No active account found with the given credentials"
	case errors.Is(err, backend.ErrUserNotFound):
		return http.StatusUnauthorized, "User not found"
	case errors.Is(err, backend.ErrInvalidToken):
		return http.StatusUnauthorized, "Given token not valid for any token type"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "A server error occurred."
}
