package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/reefspotter/backend/internal/db"
  "github.com/reefspotter/backend/internal/handlers"
  "github.com/reefspotter/backend/internal/logger"
  "github.com/reefspotter/backend/internal/middleware"
  "github.com/reefspotter/backend/internal/observability"
  "github.com/reefspotter/backend/internal/realtime/bus"
  "github.com/reefspotter/backend/internal/repos"
  "github.com/reefspotter/backend/internal/server"
  "github.com/reefspotter/backend/internal/services"
  "github.com/reefspotter/backend/internal/sse"
  "github.com/reefspotter/backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx := context.Background()

  // Tracing (no-op unless OTEL_ENABLED)
  shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
    ServiceName: "reefspotter-backend",
    Environment: utils.GetEnv("APP_ENV", "development", log),
    Version:     utils.GetEnv("APP_VERSION", "dev", log),
  })
  if shutdownOtel != nil {
    defer func() { _ = shutdownOtel(ctx) }()
  }

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
  sessionIdleTTL := utils.GetEnvAsInt("SESSION_IDLE_TTL", 86400, log)
  speciesSeedFile := utils.GetEnv("SPECIES_SEED_FILE", "seed/species.yaml", log)
  avatarDir := utils.GetEnv("AVATAR_DIR", "media/avatars", log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  speciesRepo := repos.NewSpeciesRepo(thePG, log)
  sightingRepo := repos.NewSightingRepo(thePG, log)

  // Catalog seed (no-op when the table already has rows)
  if _, err := speciesRepo.SeedFromFile(ctx, speciesSeedFile); err != nil {
    log.Warn("Species seed failed", "file", speciesSeedFile, "error", err)
  }

  // Events
  log.Info("Setting up event bus and SSE hub now...")
  eventBus, err := bus.NewBus(log)
  if err != nil {
    log.Error("Could not init event bus", "error", err)
    os.Exit(1)
  }
  defer eventBus.Close()
  sseHub := sse.NewHub(log)
  if err := eventBus.StartForwarder(ctx, sseHub.Publish); err != nil {
    log.Warn("Could not start event forwarder", "error", err)
  }

  // Services
  log.Info("Setting up Services from main...")
  avatarService, err := services.NewAvatarService(log)
  if err != nil {
    log.Warn("Could not init AvatarService, accounts will have no avatar", "error", err)
    avatarService = nil
  }
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(thePG, log, userRepo)
  catalogService := services.NewCatalogService(thePG, log, speciesRepo)
  reconcileService := services.NewReconcileService(thePG, log, sightingRepo)
  unlockService := services.NewUnlockService(thePG, log, sightingRepo, reconcileService, eventBus)

  // Abandoned guest sessions only live for one session's worth of idle time.
  go func() {
    ticker := time.NewTicker(time.Hour)
    defer ticker.Stop()
    for range ticker.C {
      if purged := unlockService.PurgeIdle(time.Duration(sessionIdleTTL) * time.Second); purged > 0 {
        log.Debug("Purged idle sessions", "count", purged)
      }
    }
  }()

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService, unlockService)
  userHandler := handlers.NewUserHandler(userService)
  speciesHandler := handlers.NewSpeciesHandler(catalogService)
  unlockHandler := handlers.NewUnlockHandler(unlockService)
  progressHandler := handlers.NewProgressHandler(catalogService, unlockService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:     authHandler,
    AuthMiddleware:  authMiddleware,
    SpeciesHandler:  speciesHandler,
    UnlockHandler:   unlockHandler,
    ProgressHandler: progressHandler,
    UserHandler:     userHandler,
    SSEHandler:      sseHandler,
    AvatarDir:       avatarDir,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
