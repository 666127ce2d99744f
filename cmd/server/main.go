package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dom/imagify/internal/api"
	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/imagestore"
	redisledger "github.com/dom/imagify/internal/ledger/redis"
	"github.com/dom/imagify/internal/logger"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/provider"
	"github.com/dom/imagify/internal/provider/huggingface"
	"github.com/dom/imagify/internal/provider/mock"
	"github.com/dom/imagify/internal/repository/postgres"
	"github.com/dom/imagify/internal/service"
	"github.com/dom/imagify/internal/websocket"
)

func main() {
	log := logger.SetupDefault(os.Stdout, os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = logger.SetupDefault(os.Stdout, cfg.LogLevel)

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	repos := postgres.NewRepositories(db)

	if cfg.LedgerBackend == config.LedgerRedis {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		repos.Ledger = redisledger.New(rdb)
	}

	images, err := newImageStore(cfg)
	if err != nil {
		log.Error("failed to configure image store", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := websocket.NewHub(log)
	go hub.Run()

	services := service.NewServices(repos, service.Dependencies{
		Provider: newProvider(cfg),
		Images:   images,
		Notifier: hub,
		Metrics:  metrics.NewCollector(registry),
		Logger:   log,
	}, cfg)

	router := api.NewRouter(services, hub, registry, cfg, log)

	// WriteTimeout has to outlast a full provider call.
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			"port", cfg.Port,
			"provider", cfg.Provider,
			"ledger", cfg.LedgerBackend,
			"image_store", cfg.ImageStore,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	timeout := shutdownTimeout(cfg)
	log.Info("shutting down server", "timeout", timeout.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown, in-flight generations abandoned", "error", err)
	}
	hub.Stop()

	log.Info("server stopped")
}

// shutdownTimeout lets a generation that is already waiting on the provider
// finish and record its result before the process exits.
func shutdownTimeout(cfg *config.Config) time.Duration {
	return cfg.ProviderTimeout + 30*time.Second
}

func newProvider(cfg *config.Config) provider.Provider {
	if cfg.Provider == config.ProviderMock {
		return mock.New()
	}
	return huggingface.New(cfg.ProviderAPIKey,
		huggingface.WithBaseURL(cfg.ProviderBaseURL),
		huggingface.WithModel(cfg.ProviderModel),
		huggingface.WithMaxImageBytes(cfg.ProviderMaxImageBytes),
	)
}

func newImageStore(cfg *config.Config) (imagestore.Store, error) {
	if cfg.ImageStore != config.ImageStoreS3 {
		return imagestore.NewInline(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := imagestore.NewS3(ctx, imagestore.S3Config{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
