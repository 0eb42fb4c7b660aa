package middleware

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AcceptVersion enforces the version parameter of the Accept header. Requests
// without one are served the first supported version.
func AcceptVersion(supported ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(supported))
	for _, v := range supported {
		allowed[v] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := supported[0]
			if accept := c.Request().Header.Get(echo.HeaderAccept); accept != "" {
				if _, params, err := mime.ParseMediaType(accept); err == nil && params["version"] != "" {
					version = params["version"]
				}
			}
			if _, ok := allowed[version]; !ok {
				return echo.NewHTTPError(http.StatusNotAcceptable, `Invalid version in "Accept" header.`)
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}
