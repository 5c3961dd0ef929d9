package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
)

// Recovery returns Echo middleware that turns a handler panic into a logged
// stack trace, a per-route panic count and a 500 carrying the request ID.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					panic(r)
				}

				route := routeLabel(c, http.StatusInternalServerError)
				reqID, _ := c.Get(requestIDKey).(string)
				metrics.HTTPPanicsTotal.WithLabelValues(route).Inc()
				log.Error("handler panicked",
					"error", fmt.Sprint(r),
					"method", c.Request().Method,
					"route", route,
					"request_id", reqID,
					"stack", string(debug.Stack()),
				)

				if c.Response().Committed {
					return
				}
				body := map[string]string{"status": "error", "error": "internal server error"}
				if reqID != "" {
					body["request_id"] = reqID
				}
				err = c.JSON(http.StatusInternalServerError, body)
			}()
			return next(c)
		}
	}
}
