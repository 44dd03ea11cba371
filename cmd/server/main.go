package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wsdottie/dottie-go/api/handlers"
	"github.com/wsdottie/dottie-go/internal/config"
	"github.com/wsdottie/dottie-go/internal/observability"
	"github.com/wsdottie/dottie-go/pkg/dottie"
)

func main() {
	var (
		configFile     = flag.String("config", "", "TOML config file")
		port           = flag.String("port", "", "Server port (overrides config)")
		accessCode     = flag.String("access-code", "", "WSDOT/WSF access code (overrides config and "+config.AccessTokenEnv+")")
		logLevel       = flag.String("log-level", "", "Log level (overrides config)")
		updateInterval = flag.Duration("update-interval", 0, "Subscription refresh interval (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile, os.Getenv)
	if err != nil {
		l := observability.InitLogger("dottie-server", "info")
		l.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *accessCode != "" {
		cfg.AccessCode = *accessCode
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *updateInterval > 0 {
		cfg.UpdateInterval = *updateInterval
	}

	logger := observability.InitLogger("dottie-server", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	observability.RegisterMetrics()

	client, err := dottie.NewLocal(dottie.Config{
		AccessCode:     cfg.AccessCode,
		WSDOTBaseURL:   cfg.WSDOTBaseURL,
		WSFBaseURL:     cfg.WSFBaseURL,
		UpdateInterval: cfg.UpdateInterval,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		MaxConcurrent:  cfg.MaxConcurrent,
		Validate:       cfg.ValidateSchema,
		Subscriptions:  cfg.Subscriptions,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	// Create HTTP server
	r := mux.NewRouter()
	h := handlers.NewHandler(client)
	h.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Add middleware
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetrics)
	r.Use(corsMiddleware)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info().Str("port", cfg.Port).Int("subscriptions", len(cfg.Subscriptions)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
