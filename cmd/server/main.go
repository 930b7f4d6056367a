package main

import (
	"alcyxob/workout-tracker/internal/api"
	"alcyxob/workout-tracker/internal/config"
	"alcyxob/workout-tracker/internal/logging"
	"alcyxob/workout-tracker/internal/metrics"
	"alcyxob/workout-tracker/internal/repository"
	"alcyxob/workout-tracker/internal/repository/memory"
	"alcyxob/workout-tracker/internal/repository/mongo"
	"alcyxob/workout-tracker/internal/service"
	"alcyxob/workout-tracker/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// backend is the persistence and object storage chosen by database.driver.
type backend struct {
	repos repository.Repositories
	files storage.FileStorage
	close func()
}

// @title Workout Tracker API
// @version 1.0
// @description API for workout templates, live workout sessions, and training history.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity provider's JWT.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logging.Setup(logging.SetupParams{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	log.WithFields(log.Fields{
		"address": cfg.Server.Address,
		"driver":  cfg.Database.Driver,
	}).Info("starting workout tracker server")

	// --- Storage backend ---
	b, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("could not initialize %s backend: %v", cfg.Database.Driver, err)
	}
	defer b.close()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsManager := metrics.NewManager("workout", "server", registry)

	// --- Initialize Services ---
	images := service.NewImageURLs(b.files, cfg.S3.PresignExpiry)
	templateService := service.NewTemplateService(
		b.repos.Users, b.repos.Templates, b.repos.TemplateExercises,
		b.files, images,
	)
	sessionService := service.NewSessionService(
		b.repos.Users, b.repos.Templates, b.repos.TemplateExercises,
		b.repos.Sessions, b.repos.SessionExercises, b.repos.Sets,
		images,
	)

	// --- Initialize Gin Engine ---
	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger())

	api.SetupRoutes(router,
		api.AuthSettings{JWTSecret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		templateService, sessionService,
		metricsManager, registry,
	)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server exiting")
}

// openBackend connects MongoDB and S3, or builds the in-process store.
func openBackend(cfg config.Config) (*backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		host := cfg.Server.Address
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		return &backend{
			repos: memory.NewStore().Repositories(),
			files: storage.NewMemoryStorage("http://" + host + "/files"),
			close: func() {},
		}, nil
	}

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return nil, err
	}
	closeDB := func() {
		log.Info("disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("failed to disconnect MongoDB")
		}
	}
	appDB := dbClient.Database(cfg.Database.Name)
	log.WithField("database", cfg.Database.Name).Info("database connection established")

	// The unique subject index backs the lazy user upsert, so index
	// creation runs before serving rather than in the background.
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), time.Minute)
	defer cancelIndex()
	if err := mongo.EnsureIndexes(indexCtx, appDB); err != nil {
		closeDB()
		return nil, err
	}

	storageCtx, cancelStorage := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStorage()
	fileStorage, err := storage.NewS3Storage(storageCtx, cfg.S3)
	if err != nil {
		closeDB()
		return nil, err
	}

	return &backend{
		repos: mongo.NewRepositories(appDB),
		files: fileStorage,
		close: closeDB,
	}, nil
}
