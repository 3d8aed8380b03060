package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "sort"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.  *sql.DB satisfies
// it directly; other clients can be adapted with PingFunc.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the health-check endpoint used by load balancers
// and monitoring systems.  Every registered dependency is pinged with a
// short timeout; any failure turns the response into 503.
type HealthHandler struct {
    checks map[string]Pinger
}

// NewHealthHandler builds a HealthHandler over the named dependencies.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
    return &HealthHandler{checks: checks}
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    names := make([]string, 0, len(h.checks))
    for name := range h.checks {
        names = append(names, name)
    }
    sort.Strings(names)

    status := http.StatusOK
    results := make(map[string]string, len(names))
    for _, name := range names {
        if err := h.checks[name].PingContext(ctx); err != nil {
            results[name] = err.Error()
            status = http.StatusServiceUnavailable
            continue
        }
        results[name] = "ok"
    }

    overall := "ok"
    if status != http.StatusOK {
        overall = "degraded"
    }
    return c.JSON(status, echo.Map{"status": overall, "checks": results})
}
