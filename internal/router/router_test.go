package router

import (
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/policy"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, handler.NewHealthHandler(nil))
	svc := service.NewReservationService(service.NewMatcher(nil, nil, time.UTC, nil), nil, nil, nil, nil, service.Options{}, nil)
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterReservations(e, handler.NewReservationHandler(svc, policy.DefaultHours, time.UTC, nil), "", passthrough)

	var got []string
	for _, r := range e.Routes() {
		// groups with middleware also register not-found catch-alls
		if r.Method == http.MethodGet || r.Method == http.MethodPost {
			got = append(got, r.Method+" "+r.Path)
		}
	}
	sort.Strings(got)
	assert.Equal(t, []string{
		http.MethodGet + " /api/reservations-per-day",
		http.MethodGet + " /healthz",
		http.MethodGet + " /v1/reservations-per-day",
		http.MethodPost + " /api/reservation-requests",
		http.MethodPost + " /v1/reservation-requests",
	}, got)
}
