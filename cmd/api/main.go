package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamhive/upload-service/api/controllers"
	"github.com/streamhive/upload-service/api/routes"
	"github.com/streamhive/upload-service/internal/probe"
	"github.com/streamhive/upload-service/internal/upload"
	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/instance"
	"github.com/streamhive/upload-service/pkg/logger"
	"github.com/streamhive/upload-service/pkg/metrics"
	"github.com/streamhive/upload-service/pkg/pubsub"
	"github.com/streamhive/upload-service/pkg/redis"
	"github.com/streamhive/upload-service/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "upload-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "upload-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	var redisClient *redis.Client
	var store upload.StatusStore = upload.NewMemoryStore()
	if cfg.Status.IsRedis() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		store = upload.NewRedisStore(redisClient, cfg.Status)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	uploadService := upload.NewService(
		store,
		probe.NewFFProbe(cfg.Probe),
		gcsClient,
		upload.NewPubSubPublisher(pubsubClient, cfg.PubSub),
		pipelineMetrics,
		logg,
		cfg.GCS.RawBucket,
	)

	pingers := map[string]controllers.Pinger{
		"gcs":    gcsClient,
		"pubsub": pubsubClient,
	}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting upload api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:  cfg,
			Logger:  logg,
			Uploads: uploadService,
			Pingers: pingers,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "upload api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
