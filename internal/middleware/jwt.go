package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

// contextKeyUserID is where the verified token subject is stored.
const contextKeyUserID = "user_id"

// OptionalJWT returns an Echo middleware that accepts anonymous requests
// but verifies a Bearer token when one is sent.  A valid token stores its
// subject under "user_id" so handlers can derive a customer reference; a
// malformed or invalid token is rejected with 401 rather than silently
// downgraded to a guest.  With an empty secret tokens are ignored.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if auth == "" || secret == "" {
                return next(c)
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization header"})
            }
            sub, err := utils.ParseSubject(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(contextKeyUserID, sub)
            return next(c)
        }
    }
}
