package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/carcompare/compare-webserver/internal/cache"
	"github.com/carcompare/compare-webserver/internal/config"
	"github.com/carcompare/compare-webserver/internal/database"
	"github.com/carcompare/compare-webserver/internal/database/usecase"
	handler "github.com/carcompare/compare-webserver/internal/delivery/http"
	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/carcompare/compare-webserver/internal/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const uploadSizeSyncInterval = 5 * time.Minute

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("could not load config: %s", err)
	}

	logging.InitLogger(cfg.Logging.MaxLogs, cfg.Logging.CrashDir)
	logger := logging.GetLogger()
	defer logger.RecoverAndLogPanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional, the catalog is read straight from mongo without it
	var catalogCache usecase.CatalogCache
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn(fmt.Sprintf("catalog cache disabled: %s", err))
		} else {
			defer redisClient.Close()
			catalogCache = cache.NewRedisCatalogCache(redisClient, cfg.Redis.CacheTTL)
		}
	}

	db, err := database.NewDatabaseClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database, catalogCache)
	if err != nil {
		log.Fatalf("could not connect to mongodb: %s", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Error(fmt.Sprintf("could not disconnect from mongodb: %s", err))
		}
	}()

	fileProcessor, err := background.NewFileProcessor(cfg.Uploads.Dir, cfg.Uploads.MaxTotalSize)
	if err != nil {
		log.Fatalf("could not set up the upload dir: %s", err)
	}
	fileProcessor.Start(ctx)
	defer fileProcessor.Stop()
	go fileProcessor.SyncTotalSize(ctx, uploadSizeSyncInterval)

	api := &handler.API{
		Cars:          db.CarUseCase(),
		Catalog:       db.CatalogUseCase(),
		FileProcessor: fileProcessor,
		Importer:      background.NewCarImportProcessor(db.CarUseCase()),
	}

	if cfg.AWS.ImagesEnabled() {
		// One S3 client is shared by every request
		s3Repository, err := s3.NewS3Session(ctx, cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Region, cfg.AWS.ImageBucket)
		if err != nil {
			log.Fatalf("could not create s3 session: %s", err)
		}
		api.Images = s3Repository
		logger.Info(fmt.Sprintf("storing car images in bucket %s", s3Repository.Bucket()))
	} else {
		logger.Info("no image bucket configured, car image endpoints are disabled")
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/ping"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CorsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Car Compare Webserver"))
	})
	router.Route("/api", api.Mount)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info(fmt.Sprintf("listening on %s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("server stopped: %s", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("graceful shutdown failed: %s", err))
	}
}
