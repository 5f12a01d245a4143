package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/config"
	"github.com/joy095/booking/config/db"
	"github.com/joy095/booking/config/redis"
	"github.com/joy095/booking/logger"
	middleware "github.com/joy095/booking/middlewares"
	"github.com/joy095/booking/middlewares/cors"
	logger_middleware "github.com/joy095/booking/middlewares/logger"
	"github.com/joy095/booking/models/booking_models"
	"github.com/joy095/booking/models/room_models"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/routes"
	"github.com/joy095/booking/services/booking_service"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}

	logger.InitLoggers(logger.Options{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	ctx := context.Background()

	pool, err := db.Connect(ctx, db.Options{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		logger.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.ErrorLogger.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.GetRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.WarnLogger.Warnf("Redis unavailable, rate limits fall back to process memory: %v", err)
		} else {
			middleware.UseRedisStore(rdb)
			defer redis.CloseRedis()
		}
	}

	bookingService := booking_service.NewBookingService(
		booking_models.NewStore(pool),
		room_models.NewDirectory(pool),
		user_models.NewDirectory(pool),
	)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware(cfg.CORSAllowedOrigins))
	r.Use(logger_middleware.GinLogger())

	routes.RegisterRoutes(r, cfg, bookingService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.InfoLogger.Infof("Booking service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Fatalf("Server failed to listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoLogger.Info("Shutting down booking service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.InfoLogger.Info("Booking service exited gracefully.")
}
