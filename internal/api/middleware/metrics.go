package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
)

// unmatchedRoute is the route label for requests no route answered.
// Raw URLs never become label values.
const unmatchedRoute = "unmatched"

var healthGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and status
// by registered route. Probe and scrape routes only drive their up gauge.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, probe := probePaths[c.Path()]; probe {
				err := next(c)
				if gauge, ok := healthGauges[c.Path()]; ok {
					gauge.Set(boolToFloat(isSuccess(responseStatus(c, err))))
				}
				return err
			}

			start := time.Now()
			err := next(c)

			status := responseStatus(c, err)
			labels := []string{c.Request().Method, routeLabel(c, status), strconv.Itoa(status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}

// responseStatus is the status the client will see. A handler error is
// only written by echo's error handler after the middleware chain returns.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func routeLabel(c echo.Context, status int) string {
	if c.Path() == "" || status == http.StatusNotFound {
		return unmatchedRoute
	}
	return c.Path()
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
