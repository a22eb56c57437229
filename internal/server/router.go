package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
  "github.com/reefspotter/backend/internal/handlers"
  "github.com/reefspotter/backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler      *handlers.AuthHandler
  AuthMiddleware   *middleware.AuthMiddleware
  SpeciesHandler   *handlers.SpeciesHandler
  UnlockHandler    *handlers.UnlockHandler
  ProgressHandler  *handlers.ProgressHandler
  UserHandler      *handlers.UserHandler
  SSEHandler       *handlers.SSEHandler
  AvatarDir        string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware("reefspotter-backend"))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Session-ID"},
    AllowCredentials: true,
  }))

  if cfg.AvatarDir != "" {
    router.Static("/media/avatars", cfg.AvatarDir)
  }

  // ===============
  // || Public    ||
  // ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  api := router.Group("/api")
  {
    api.POST("/register", cfg.AuthHandler.Register)
    api.POST("/login", cfg.AuthHandler.Login)
    api.GET("/species", cfg.SpeciesHandler.List)
  }

  // ===============
  // || Session   ||
  // ===============
  // Guest or logged-in: either an X-Session-ID header or a bearer token.
  session := router.Group("/api")
  session.Use(cfg.AuthMiddleware.Session())
  session.POST("/unlocks/toggle", cfg.UnlockHandler.Toggle)
  session.GET("/unlocks", cfg.UnlockHandler.List)
  session.GET("/progress", cfg.ProgressHandler.Get)

  // ===============
  // || Protected ||
  // ===============
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  protected.GET("/user", cfg.UserHandler.GetMe)
  protected.GET("/sse/stream", cfg.SSEHandler.Stream)

  merge := router.Group("/api")
  merge.Use(cfg.AuthMiddleware.Session())
  merge.POST("/unlocks/merge", cfg.UnlockHandler.RetryMerge)

  return router
}
