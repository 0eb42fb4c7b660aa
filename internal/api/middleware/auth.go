package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopassist/shopchat/internal/api/backend"
)

const (
	msgNoCredentials = "Authentication credentials were not provided."
	msgInvalidToken  = "Given token not valid for any token type"
)

// TokenParser validates a raw JWT of the given type.
type TokenParser interface {
	ParseToken(raw, tokenType string) (*backend.Claims, error)
}

// Auth validates the bearer access token and injects the user id into context.
func Auth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoCredentials)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
			}

			claims, err := parser.ParseToken(parts[1], backend.TokenAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
			}

			c.Set("user_id", claims.UserID)
			return next(c)
		}
	}
}
