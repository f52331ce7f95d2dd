package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/analytics"
	"github.com/lazysauce/collector/internal/config"
	"github.com/lazysauce/collector/internal/datacenter"
	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/geo"
	"github.com/lazysauce/collector/internal/handlers"
	"github.com/lazysauce/collector/internal/ingest"
	"github.com/lazysauce/collector/internal/logger"
	"github.com/lazysauce/collector/internal/provision"
	"github.com/lazysauce/collector/internal/store"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("debug", logger.Options{}).Fatal("config", zap.Error(err))
	}

	log := logger.New(cfg.LogMode, logger.Options{Dir: cfg.LogDir, Filename: cfg.LogFile})
	defer log.Sync()

	ctx := context.Background()
	router, err := store.Open(ctx, cfg.StoreOptions(), log)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}
	defer router.Close()

	dir, err := directory.New(router, cfg.CacheSize, log)
	if err != nil {
		log.Fatal("directory", zap.Error(err))
	}

	var providers []geo.Provider
	if cfg.IPStackAPIKey != "" {
		providers = append(providers, geo.NewIPStack(cfg.IPStackURL, cfg.IPStackAPIKey, nil))
	}
	maxmind, err := geo.OpenMaxMind(cfg.GeoIPPath)
	if err != nil {
		log.Warn("geoip database unavailable, lookups disabled", zap.Error(err))
		maxmind, _ = geo.OpenMaxMind("")
	}
	defer maxmind.Close()
	if maxmind.Enabled() {
		providers = append(providers, maxmind)
	}

	var dc *datacenter.Checker
	if cfg.DatacenterCheck {
		dc = datacenter.New(datacenter.DefaultSources, log)
		dc.Start(datacenter.RefreshInterval)
	}

	collector := analytics.NewCollector(router, log, cfg.CheckpointBuffer, cfg.CheckpointFlush)

	svc := &ingest.Service{
		Router:      router,
		Directory:   dir,
		Provisioner: provision.New(router, log),
		Geo:         geo.NewResolver(cfg.GeoTimeout, log, providers...),
		Datacenter:  dc,
		Checkpoints: collector,
		Log:         log,
	}

	h := &handlers.TrackingHandler{Svc: svc, Log: log, Version: version}
	mux, err := handlers.NewRouter(h, handlers.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateRPS:     cfg.RateRPS,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		log.Fatal("router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("collector listening", zap.String("port", cfg.Port), zap.String("driver", cfg.DBDriver), zap.Int("geo_providers", len(providers)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-stop
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	collector.Shutdown()
	if dc != nil {
		dc.Shutdown()
	}
	log.Info("goodbye")
}
