package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliolabs/folio/pkg/comments"
	"github.com/foliolabs/folio/pkg/config"
	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/index"
	"github.com/foliolabs/folio/pkg/logging"
	"github.com/foliolabs/folio/pkg/ratelimit"
	"github.com/foliolabs/folio/pkg/search"
	"github.com/foliolabs/folio/pkg/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	store, err := content.NewStore(cfg.Content.Dir, logger)
	if err != nil {
		return fmt.Errorf("content store: %w", err)
	}
	defer store.Close()
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	logger.Infof("loaded %d content items from %s", store.Len(), cfg.Content.Dir)

	engine := search.NewEngine(store, cfg.Search, logger)

	var searcher search.Searcher = engine
	var idx *index.Index
	if cfg.Server.SearchBackend == "index" {
		idx, err = index.Open(cfg.Index, logger)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		defer idx.Close()
		if err := idx.Rebuild(store.Snapshot()); err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		searcher = idx
	}

	store.OnReload(func(n int) {
		engine.InvalidateCache()
		if idx != nil {
			if err := idx.Rebuild(store.Snapshot()); err != nil {
				logger.Errorf("index rebuild after reload failed: %v", err)
			}
		}
		logger.Infof("content reloaded: %d items", n)
	})
	if cfg.Content.Watch {
		if err := store.Watch(); err != nil {
			logger.Warnf("content watching unavailable: %v", err)
		}
	}

	limiter := ratelimit.New(cfg.RateLimit)
	defer limiter.Shutdown()

	var commentStore *comments.Store
	if cfg.Comments.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		commentStore, err = comments.NewStore(ctx, cfg.Comments.Store,
			comments.NewModerator(cfg.Comments.Moderation), logger)
		cancel()
		if err != nil {
			return fmt.Errorf("comment store: %w", err)
		}
		defer commentStore.Close()
		if err := commentStore.MigrateToLatest(); err != nil {
			return fmt.Errorf("comment migrations: %w", err)
		}
	}

	srv := server.New(server.Options{
		Engine:         engine,
		Searcher:       searcher,
		Store:          store,
		Comments:       commentStore,
		Limiter:        limiter,
		Logger:         logger,
		AdminTokenHash: cfg.Server.AdminTokenHash,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (backend %s)", cfg.Server.Addr, cfg.Server.SearchBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func buildLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format := logging.TextFormat
	if cfg.Format == "json" {
		format = logging.JSONFormat
	}

	logCfg := &logging.Config{Level: level, Format: format, Output: os.Stdout}
	if cfg.Output != "" && cfg.Output != "console" {
		w, err := logging.CreateFileOutput(cfg.Output)
		if err != nil {
			return nil, err
		}
		logCfg.Output = w
	}
	return logging.New(logCfg), nil
}
