package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are the routes served without a bearer token.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/db":    true,
	"/cds-services": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
