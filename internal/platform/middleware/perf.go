package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// PerformanceRecorder persists per-request timing rows (the performance_logs
// table). Implementations must not block; the middleware calls them inline
// after the response is written.
type PerformanceRecorder interface {
	RecordTiming(method, path string, status int, duration time.Duration)
}

// Performance returns middleware that records request duration per endpoint.
// Recording is best-effort; a failing recorder never affects the response.
func Performance(recorder PerformanceRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if recorder != nil {
				recorder.RecordTiming(c.Request().Method, c.Path(), c.Response().Status, time.Since(start))
			}
			return err
		}
	}
}
