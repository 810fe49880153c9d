package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-api/config"
	"restaurant-api/handlers"
	"restaurant-api/middleware"
	"restaurant-api/payment"
	"restaurant-api/realtime"
	"restaurant-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
)

func newGateway(cfg *config.Config) payment.Gateway {
	if cfg.PaymentProvider == "stripe" {
		rlog.Info("Using Stripe payment gateway")
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}
	rlog.Infof("Using simulated payment gateway (limit %.2f)", cfg.SimulatedPaymentLimit)
	return payment.NewSimulatedGateway(cfg.SimulatedPaymentLimit, cfg.StripeWebhookSecret)
}

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	port := flag.String("port", "", "listen port, overrides PORT")
	seed := flag.Bool("seed", false, "seed the admin account, catalog and settings before starting")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		rlog.Criticalf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	cfg.SetupLogging()
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg)
	if err != nil {
		rlog.Criticalf("Database: %v", err)
		os.Exit(1)
	}
	if *seed || cfg.SeedOnStart {
		if err := config.SeedDatabase(db, cfg); err != nil {
			rlog.Criticalf("Seeding failed: %v", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(nil)
	go hub.Run(ctx)

	h, err := handlers.New(db, cfg, newGateway(cfg), hub)
	if err != nil {
		rlog.Criticalf("Init handlers: %v", err)
		os.Exit(1)
	}
	if err := handlers.RegisterValidators(); err != nil {
		rlog.Criticalf("Register validators: %v", err)
		os.Exit(1)
	}

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery(), middleware.CORS(cfg.CORSOrigins))
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		rlog.Infof("Server running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rlog.Criticalf("Failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	rlog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rlog.Errorf("Shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
