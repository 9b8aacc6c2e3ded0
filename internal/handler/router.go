package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/config"
	"github.com/clinicbook/clinicbook-api/internal/handler/middleware"
	v1 "github.com/clinicbook/clinicbook-api/internal/handler/v1"
	"github.com/clinicbook/clinicbook-api/pkg/metrics"
)

type Handlers struct {
	Patients     *v1.PatientHandler
	Doctors      *v1.DoctorHandler
	Appointments *v1.AppointmentHandler
}

// NewRouter assembles the middleware chain and API routes. ctx bounds the
// lifetime of the rate limiter's janitor goroutine.
func NewRouter(ctx context.Context, cfg *config.Config, log *zap.Logger, collector *metrics.Collector, h Handlers) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(collector))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": cfg.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	{
		h.Patients.RegisterRoutes(api)
		h.Doctors.RegisterRoutes(api)
		h.Appointments.RegisterRoutes(api)
	}

	return r
}
