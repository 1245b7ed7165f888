package main

import (
	"context"   // Shutdown deadline
	"errors"    // Server closed check
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"rewards_system/internal/api"        // Custom package for API handlers
	"rewards_system/internal/app"        // Service wiring
	"rewards_system/internal/config"     // Custom package for configuration
	"rewards_system/internal/logger"     // Logger setup
	"rewards_system/internal/middleware" // Custom package for middleware
	"rewards_system/internal/realtime"   // Websocket hub

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/sync/errgroup" // Server and scheduler lifecycle
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger.Setup(cfg) // Setup logger

	a, err := app.New(cfg) // Database, redis and services
	if err != nil {
		logrus.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst) // Reward endpoint budget
	r, err := api.NewRouter(api.Deps{
		DB:        a.DB,                                    // Health checks and admin roles
		JWTSecret: cfg.JWTSecret,                           // Token signing key
		Accounts:  a.Accounts,                              // Account store
		Catalog:   a.Catalog,                               // Catalog store
		Ledger:    a.Ledger,                                // Ledger engine
		Rewards:   a.Rewards,                               // Reward rules
		Hub:       realtime.NewHub(a.Redis, cfg.JWTSecret), // Balance change stream
		Limiter:   limiter,                                 // Rate limiter
	}, cfg.TrustProxy)
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	scheduler, err := a.Scheduler(limiter) // Settlement and sweeps
	if err != nil {
		logrus.Fatalf("invalid SETTLE_SCHEDULE: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort, // Listen address
		Handler:           r,                 // Gin router
		ReadHeaderTimeout: 10 * time.Second,  // Slow client protection
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-ctx.Done()
		<-scheduler.Stop().Done() // Wait for a running settlement to finish
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
}
