package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subtrackapp/subtrack/pkg/config"
	"github.com/subtrackapp/subtrack/pkg/environment"
	"github.com/subtrackapp/subtrack/pkg/httpserver"
	"github.com/subtrackapp/subtrack/pkg/logger"
	"github.com/subtrackapp/subtrack/pkg/mongo"
)

type appConfig struct {
	HTTP  httpserver.Config
	Mongo mongo.Config
}

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		logger.New().Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	env := environment.FromEnv()
	log := logger.New(logger.WithEnvironment(env, "subtrackd"))
	logger.SetAsDefault(log)

	if !mongo.Validate(cfg.Mongo.URI, env) {
		log.Error("invalid database connection string",
			logger.Component("mongo"),
		)
		os.Exit(1)
	}

	meter, err := mongo.NewMetrics(nil)
	if err != nil {
		log.Error("failed to register metrics", logger.Error(err))
		os.Exit(1)
	}

	manager := mongo.New(cfg.Mongo, env,
		mongo.WithLogger(log),
		mongo.WithMetrics(meter),
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.DisconnectAll(ctx); err != nil {
			log.Error("failed to disconnect from database", logger.Error(err))
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(environment.Middleware(env))

	r.Get("/health", mongo.HealthHandler(manager, log))
	r.Get("/health/live", mongo.LivenessHandler())
	r.Get("/ready", httpserver.ReadinessHandler(log, func(req *http.Request) error {
		report := manager.DatabaseHealth(req.Context())
		if report.Err != nil {
			return report.Err
		}
		return nil
	}))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
	)
	if err := srv.Run(context.Background(), r); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}
