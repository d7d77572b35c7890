package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/claude/liftlog/internal/config"
	liftmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiftLog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Session slot
	kv, closeKV, err := openSessionKV(ctx, cfg.Session)
	if err != nil {
		log.Error("failed to open session storage", "backend", cfg.Session.Backend, "error", err)
		os.Exit(1)
	}
	defer closeKV()

	store := session.NewStorage(kv, cfg.Session.Key, log)
	tracker := session.NewTracker(store, db, log)
	if err := tracker.Restore(ctx); err != nil {
		log.Error("failed to restore active session", "error", err)
		os.Exit(1)
	}
	if s := tracker.Session(); s != nil {
		log.Info("resumed active session", "workout", s.WorkoutName, "started_at", s.StartedAt)
	}

	srv := server.New(db, tracker, cfg.Auth.APIKey, log)

	mcpHandler := mcpserver.NewStreamableHTTPServer(
		liftmcp.New(&liftmcp.Local{DB: db, Tracker: tracker}, Version, log),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return liftmcp.WithUserID(ctx, server.UserID(r))
		}),
	)
	srv.SetMCP(mcpHandler)

	if cfg.Server.StaticDir != "" {
		srv.SetFrontend(os.DirFS(cfg.Server.StaticDir))
		log.Info("serving frontend", "dir", cfg.Server.StaticDir)
	}

	// Listen on the tailnet, or on plain TCP in dev
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// openSessionKV connects the configured session medium. The returned func
// releases it.
func openSessionKV(ctx context.Context, cfg config.SessionConfig) (session.KV, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return session.NewMemoryKV(), func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return session.NewRedisKV(client), func() { client.Close() }, nil
	default:
		kv, err := session.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { kv.Close() }, nil
	}
}
