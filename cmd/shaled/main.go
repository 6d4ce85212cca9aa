package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arohner/shale/internal/api"
	"github.com/arohner/shale/internal/config"
	"github.com/arohner/shale/internal/pool"
	"github.com/arohner/shale/internal/provider"
	"github.com/arohner/shale/internal/session"
	"github.com/arohner/shale/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	kv, err := newStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer kv.Close()
	log.Printf("Connected to %s store successfully.", cfg.Store.Backend)

	prov, err := provider.Select(cfg.Provider, nil)
	if err != nil {
		log.Fatalf("Failed to build node provider: %v", err)
	}

	sessions := session.NewTracker(kv)
	nodePool := pool.New(kv, prov, sessions, cfg.Pool.DefaultMaxSessions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go refreshLoop(ctx, nodePool, cfg.Pool.RefreshInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.NewRouter(nodePool),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	log.Printf("Listening on :%s", cfg.Server.Port)

	// Graceful shutdown on Ctrl+C / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down coordinator...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
}

func newStore(cfg config.Store) (store.KV, error) {
	if cfg.Backend == "memory" {
		return store.NewMemoryStore(), nil
	}
	return store.NewEtcdManager(cfg.Endpoints)
}

// refreshLoop reconciles on a timer. Passes that abort on store contention
// are retried with backoff; contention retries are this caller's concern,
// never the pool's.
func refreshLoop(ctx context.Context, p *pool.NodePool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh(ctx, p)
	for {
		select {
		case <-ticker.C:
			refresh(ctx, p)
		case <-ctx.Done():
			return
		}
	}
}

func refresh(ctx context.Context, p *pool.NodePool) {
	operation := func() error {
		err := p.Refresh(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrTxnConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Printf("[Refresh] Pass failed: %v", err)
	}
}
