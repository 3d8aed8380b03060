package middleware

// identity.go defines helpers that turn the authenticated subject stored
// by OptionalJWT into identifiers used by handlers and the rate limiter.

import "github.com/labstack/echo/v4"

// Guest identifies unauthenticated callers.
const Guest = "guest"

// userID returns the verified token subject, or Guest when the request
// carries no token.
func userID(c echo.Context) string {
    if v, ok := c.Get(contextKeyUserID).(string); ok && v != "" {
        return v
    }
    return Guest
}

// CustomerRef is the opaque customer reference recorded on reservations:
// "user:<sub>" for authenticated callers, Guest otherwise.
func CustomerRef(c echo.Context) string {
    uid := userID(c)
    if uid == Guest {
        return Guest
    }
    return "user:" + uid
}
