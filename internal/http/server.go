// README: API gateway; registers HTTP routes and delegates to the itinerary planner.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"itinera/internal/http/handlers"
	"itinera/internal/http/middleware"
	"itinera/internal/infra"
)

type ServerDeps struct {
	Planner     handlers.ItineraryPlanner
	Verifier    infra.TokenVerifier
	Logger      *zap.Logger
	CORSOrigins []string
}

type Server struct {
	planner     handlers.ItineraryPlanner
	verifier    infra.TokenVerifier
	log         *zap.Logger
	corsOrigins []string
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		planner:     deps.Planner,
		verifier:    deps.Verifier,
		log:         log,
		corsOrigins: deps.CORSOrigins,
	}
}

// Routes builds the engine. POST /api/itineraries verifies its own token inside the planner
// so authentication failures are reported with the pipeline's stage.
func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(s.log), middleware.Recovery(s.log), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewItineraryHandler(s.planner)
	api := r.Group("/api/itineraries")
	api.GET("/options", h.Options)
	api.POST("", h.Create)

	authed := api.Group("", middleware.Auth(s.verifier))
	authed.GET("", h.List)
	authed.GET("/quota", h.Quota)
	authed.GET("/:id", h.Get)

	return middleware.NewCORSHandler(s.corsOrigins)(r)
}
