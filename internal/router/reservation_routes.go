package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
)

// RegisterReservations registers the reservation endpoints under /v1 and
// under the legacy /api prefix.  Both groups accept anonymous callers; a
// bearer token, when sent, must be valid and identifies the customer.
// The limiter wraps only the create route.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	for _, prefix := range []string{"/v1", "/api"} {
		g := e.Group(prefix, middleware.OptionalJWT(jwtSecret))
		g.GET("/reservations-per-day", h.ReservationsPerDay)
		g.POST("/reservation-requests", h.CreateReservationRequest, limiter)
	}
}
