package web

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/thomiceli/gistfeed/internal/config"
	"github.com/thomiceli/gistfeed/internal/db"
)

var (
	countGistsGauge prometheus.Gauge

	metricsInitialized = false
)

// initMetrics initializes metrics if they're not already initialized
func initMetrics() {
	if metricsInitialized {
		return
	}

	if config.C.MetricsEnabled {
		countGistsGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gistfeed_gists_total",
				Help: "Total number of cached gists",
			},
		)

		metricsInitialized = true
	}
}

// updateMetrics refreshes gauge values from the database
func updateMetrics() {
	if !config.C.MetricsEnabled || !metricsInitialized {
		return
	}

	countGists, err := db.CountAll(&db.Gist{})
	if err == nil {
		countGistsGauge.Set(float64(countGists))
	}
}

func (s *Server) metrics(ctx echo.Context) error {
	initMetrics()
	updateMetrics()

	return echoprometheus.NewHandler()(ctx)
}
