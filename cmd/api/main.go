package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/commune/commune-api/internal/config"
	"github.com/commune/commune-api/internal/domain/auth"
	"github.com/commune/commune-api/internal/domain/authz"
	"github.com/commune/commune-api/internal/domain/community"
	"github.com/commune/commune-api/internal/domain/membership"
	"github.com/commune/commune-api/internal/domain/permission"
	"github.com/commune/commune-api/internal/domain/role"
	"github.com/commune/commune-api/internal/domain/user"
	"github.com/commune/commune-api/internal/middleware"
	"github.com/commune/commune-api/internal/pkg/database"
	"github.com/commune/commune-api/internal/pkg/jwt"
	"github.com/commune/commune-api/internal/pkg/logger"
	pkgresponse "github.com/commune/commune-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Commune API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	// Decision cache: shared Redis when configured, in-process LRU
	// otherwise
	var decisionCache authz.DecisionCache
	if redisClient != nil {
		decisionCache = authz.NewRedisCache(redisClient, cfg.AuthzCacheTTL)
	} else {
		decisionCache = authz.NewLocalCache(cfg.AuthzCacheSize, cfg.AuthzCacheTTL)
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	communityRepo := community.NewRepository(db)
	membershipRepo := membership.NewRepository(db)
	permissionRepo := permission.NewRepository(db)
	roleRepo := role.NewRepository(db)

	// ---------- Services ----------
	resolver := membership.NewResolver(membershipRepo)
	engine := authz.NewEngine(permissionRepo, userRepo, userRepo, resolver, decisionCache)

	membershipService := membership.NewService(membershipRepo, communityRepo, userRepo, resolver, decisionCache)
	communityService := community.NewService(communityRepo, membershipService)

	permissionService, err := permission.NewService(permissionRepo, membershipRepo, userRepo, decisionCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load permission seed catalog")
	}

	roleService := role.NewService(roleRepo, permissionRepo, decisionCache)
	authService := auth.NewService(userRepo, jwtService)
	userService := user.NewService(userRepo, decisionCache)

	// Seed the core catalog on startup; the endpoint re-runs it on demand
	if _, err := permissionService.SetupDefaultPermissions(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap default permissions")
	}

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	authzHandler := authz.NewHandler(engine)
	permissionHandler := permission.NewHandler(permissionService, membershipService)
	roleHandler := role.NewHandler(roleService)
	communityHandler := community.NewHandler(communityService)
	membershipHandler := membership.NewHandler(membershipService)
	userHandler := user.NewHandler(userService)

	authMiddleware := middleware.Auth(jwtService)
	adminMiddleware := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/permissions", permissionHandler.Routes(authMiddleware, adminMiddleware, authzHandler.Check))
		r.Mount("/roles", roleHandler.Routes(authMiddleware, adminMiddleware))
		r.Mount("/users", userHandler.Routes(authMiddleware, adminMiddleware,
			permissionHandler.UserRoutes(authMiddleware, adminMiddleware)))

		r.Mount("/communities", communityHandler.Routes(authMiddleware, func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Post("/{id}/join", membershipHandler.Join)
				r.Delete("/{id}/leave", membershipHandler.Leave)
			})
			r.Mount("/{id}/members", membershipHandler.Routes(authMiddleware))
			r.Mount("/{id}/permissions", permissionHandler.CommunityRoutes(authMiddleware))
		}))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
