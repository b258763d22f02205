package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/config"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/handlers"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/imagecache"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	deps, err := handlers.InitDependencies(cfg)
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}

	deps.Logger.Info("Starting image proxy", map[string]interface{}{
		"address":  cfg.HTTP.Address,
		"port":     cfg.HTTP.Port,
		"cacheDir": cfg.Cache.Dir,
		"timezone": cfg.Scheduler.Timezone,
		"refresh":  cfg.Refresh.Enabled,
		"logLevel": cfg.LogLevel,
	})

	// Background refresh sweeps, cancelled at shutdown.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	if cfg.Refresh.Enabled {
		worker := imagecache.NewRefreshWorker(deps.Cache, deps.Mappings, deps.Scheduler, cfg.Refresh.Tier, deps.Logger)
		go func() {
			defer close(workerDone)
			worker.Run(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      handlers.SetupRoutes(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		deps.Logger.Info("HTTP server listening", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	deps.Logger.Info("Shutdown signal received, shutting down gracefully", nil)

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		deps.Logger.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Let in-flight background refreshes and the sweep worker finish.
	<-workerDone
	deps.Cache.Wait()

	deps.Logger.Info("Server stopped", nil)
}
