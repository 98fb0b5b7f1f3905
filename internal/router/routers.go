package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/auth/config"
	"github.com/Payphone-Digital/auth/internal/handler"
	"github.com/Payphone-Digital/auth/internal/middleware"
	"github.com/Payphone-Digital/auth/pkg/redis"
)

type Router struct {
	authHandler   *handler.AuthHandler
	healthHandler *handler.HealthHandler

	jwtMw       *middleware.JWTMiddleware
	redisClient *redis.Client
	Config      *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	health *handler.HealthHandler,
	jwtMw *middleware.JWTMiddleware,
	redisClient *redis.Client,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:   auth,
		healthHandler: health,
		jwtMw:         jwtMw,
		redisClient:   redisClient,
		Config:        config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if !r.Config.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.RequestContext())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RequestTimeout(r.Config.App.Timeout))
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			if r.redisClient != nil {
				v1.Use(middleware.RateLimit(r.redisClient, r.Config.RateLimit.Request, time.Duration(r.Config.RateLimit.Duration)*time.Second))
			}

			r.authRoutes(v1)
		}
	}

	return router
}
