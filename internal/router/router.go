package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/handler/prometheus"
	"github.com/jwalitptl/patient-directory/internal/middleware"
	"github.com/jwalitptl/patient-directory/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine *gin.Engine
}

type RouterConfig struct {
	RateLimit   middleware.RateLimiterConfig
	MetricsPath string
}

// NewRouter wires the middleware chain and registers api handlers under
// /api/v1 and root handlers (health) at the top level.
func NewRouter(
	config RouterConfig,
	log *logger.Logger,
	metrics *prometheus.Handler,
	root []Handler,
	api []Handler,
) *Router {
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
		middleware.NewRateLimiter(config.RateLimit).RateLimit(),
	)

	metricsPath := config.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	engine.GET(metricsPath, metrics.Handler())

	for _, h := range root {
		h.RegisterRoutes(&engine.RouterGroup)
	}
	v1 := engine.Group("/api/v1")
	for _, h := range api {
		h.RegisterRoutes(v1)
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
