// Package api assembles the optional HTTP listener: liveness, readiness and
// Prometheus metrics.
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/einvoice-tracker/internal/api/handlers"
	mw "github.com/donaldgifford/einvoice-tracker/internal/api/middleware"
)

// NewServer returns an Echo instance with the health routes registered.
// Readiness tracks store.
func NewServer(store handlers.Pinger, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.Recovery(log))
	e.Use(mw.RequestLog(log))
	e.Use(mw.Metrics())

	health := handlers.NewHealthHandler(store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
