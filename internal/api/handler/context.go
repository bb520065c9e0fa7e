package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubhub/user-service/internal/core/domain"
)

// ctxPrincipal builds the acting principal from the claims injected by the
// Auth middleware and performs a fast-fail check before any service call:
// sub and role must be non-empty (presence proves the middleware ran and the
// token carries a usable identity).
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	sub, _ := c.Get("sub").(string)
	role, _ := c.Get("role").(string)
	if sub == "" || role == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	username, _ := c.Get("username").(string)
	return domain.Principal{
		ID:       sub,
		Username: username,
		Role:     domain.Role(role),
	}, nil
}
