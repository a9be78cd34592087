package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hnrobert/macallow/internal/allowlist"
	"github.com/hnrobert/macallow/internal/auth"
	"github.com/hnrobert/macallow/internal/config"
	"github.com/hnrobert/macallow/internal/database"
	"github.com/hnrobert/macallow/internal/hostfs"
	"github.com/hnrobert/macallow/internal/logger"
	"github.com/hnrobert/macallow/internal/metrics"
	"github.com/hnrobert/macallow/internal/server"
	"github.com/hnrobert/macallow/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found. Falling back to system environment variables.")
	}

	configPath := flag.String("config", getenvDefault("MACALLOW_CONFIG", "macallow.yaml"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("%v", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := logger.Init(cfg.LogDir); err != nil {
		return fmt.Errorf("log dir: %w", err)
	}
	defer logger.Close()

	figure.NewFigure("macallow", "cybermedium", true).Print()
	fmt.Println()

	hostfs.SetRoot(cfg.HostRoot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, database.WithMigration(allowlist.Migrate))
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	sessions, closeSessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeSessions()

	secretText := cfg.Session.Secret
	if secretText == "" {
		// Generate ephemeral secret if not configured.
		logger.Warn("No session secret configured; sessions will not survive a restart.")
		s, err := auth.NewRandomSecretB64(32)
		if err != nil {
			return err
		}
		secretText = s
	}

	app, err := server.NewApp(server.Options{
		Entries:      allowlist.NewStore(db),
		Sessions:     sessions,
		Verifier:     auth.NewHostVerifier(cfg.SuFallback),
		Metrics:      metrics.New(),
		Secret:       auth.DecodeSecret(secretText),
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	})
	if err != nil {
		return err
	}
	srv := server.New(server.Config{ListenAddr: cfg.ListenAddr}, app)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("macallow listening on %s (host root %s, sessions %s)", cfg.ListenAddr, hostfs.Root(), cfg.Session.Backend)
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func openSessions(ctx context.Context, cfg config.Session) (session.Store, func(), error) {
	if cfg.Backend != config.SessionRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	rdb, err := session.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(rdb, cfg.RedisTTL), func() { _ = rdb.Close() }, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
