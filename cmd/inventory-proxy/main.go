package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/catalog/internal/config"
	"storefront/catalog/internal/container"
	"storefront/catalog/internal/proxy"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Info("Starting inventory proxy...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := container.ConfigureLogging(cfg.Logging); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	p, err := proxy.New(cfg.Proxy)
	if err != nil {
		log.Fatalf("Failed to initialize proxy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Proxy.CheckOnStart {
		if err := p.CheckUpstream(ctx); err != nil {
			log.Fatalf("Upstream check failed: %v", err)
		}
	}

	server := &http.Server{
		Addr:              cfg.Proxy.Addr(),
		Handler:           p.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("🚀 Inventory proxy listening on %s -> %s", server.Addr, cfg.Proxy.Upstream)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Proxy exited with error: %v", err)
		return
	}
	log.Info("Proxy stopped")
}
