package middleware

import (
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

const (
    headerRequestID = "X-Request-ID"
    contextKeyLog   = "logger"
)

// RequestLogger assigns a request id (reusing X-Request-ID when the
// client sends one), stores a request-scoped logger in the context and
// logs one line per request once the handler returns.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    log = log.Named("http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            rid := req.Header.Get(headerRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(headerRequestID, rid)

            reqLog := log.With(
                zap.String("request_id", rid),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
            )
            c.Set(contextKeyLog, reqLog)

            err := next(c)
            if err != nil {
                // let echo write the error response so the status is known
                c.Error(err)
            }

            status := c.Response().Status
            fields := []zap.Field{
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("client_ip", c.RealIP()),
                zap.Int64("body_size", c.Response().Size),
            }
            if q := req.URL.RawQuery; q != "" {
                fields = append(fields, zap.String("query", q))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            switch {
            case status >= http.StatusInternalServerError:
                reqLog.Error("HTTP request", fields...)
            case status >= http.StatusBadRequest:
                reqLog.Warn("HTTP request", fields...)
            default:
                reqLog.Info("HTTP request", fields...)
            }
            return nil
        }
    }
}

// Recovery turns a panic in a handler into a logged 500 response.
func Recovery(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) (err error) {
            defer func() {
                if r := recover(); r != nil {
                    Logger(c, log).Error("panic recovered",
                        zap.Any("panic", r),
                        zap.Stack("stacktrace"),
                    )
                    err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
                }
            }()
            return next(c)
        }
    }
}

// Logger returns the request-scoped logger, or fallback when the
// request did not pass through RequestLogger.
func Logger(c echo.Context, fallback *zap.Logger) *zap.Logger {
    if l, ok := c.Get(contextKeyLog).(*zap.Logger); ok {
        return l
    }
    if fallback == nil {
        return zap.NewNop()
    }
    return fallback
}
