package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/checklist_backend/middlewares"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const msgNotReady = "Serviço inicializando. Tente novamente em instantes."

func (s *server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationId())
	r.Use(s.readinessGate())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(s.corsConfig()))

	if s.cfg.RateLimitEnabled {
		rateLimiter := middlewares.NewRateLimiter(s.redisClient, s.cfg.RateLimitMaxRequests, s.cfg.RateLimitWindow)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.ErrorLogger(s.logger))
	r.Use(gin.Recovery())

	r.POST("/login", s.loginHandler)

	api := r.Group("/api", middlewares.RequireAuth(s.tokens))
	api.GET("/clientes", s.listClientsHandler)
	api.GET("/clientes/:id/categorias", s.clientDetailHandler)
	api.GET("/clientes/:id/comparacao", s.comparisonHandler)
	api.GET("/clientes/:id/exportar", s.exportHandler)
	api.POST("/categorias/confirmar", s.confirmCategoryHandler)
	api.POST("/checklist/confirmar", s.bulkConfirmHandler)

	r.NoRoute(customNotFoundHandler)
	return r
}

// readinessGate always lets the startup probe through and holds everything else until
// the store is connected.
func (s *server) readinessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if !s.ready.Load() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"erro": msgNotReady})
			return
		}
		c.Next()
	}
}

// corsConfig requires an explicit allowlist in production and allows all origins elsewhere.
func (s *server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	if s.cfg.IsProduction() {
		if len(s.cfg.CORSAllowedOrigins) > 0 {
			corsConfig.AllowOrigins = s.cfg.CORSAllowedOrigins
		} else {
			// deny all when not configured
			corsConfig.AllowOriginFunc = func(origin string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = true
	return corsConfig
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"erro": "Rota não encontrada."})
}
