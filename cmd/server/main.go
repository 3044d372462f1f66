package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bingo-miniapp/internal/config"
	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/httpapi"
	"github.com/DoyleJ11/bingo-miniapp/internal/hub"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
)

func main() {
	envPath := flag.String("env", ".env", "path to a .env file")
	configPath := flag.String("config", "bingo.yaml", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*envPath, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := gateway.NewClient(cfg.APIURL, cfg.RequestTimeout, logger)
	opts := session.Options{
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Rules:          engine.Rules{BetOptions: cfg.BetOptions},
		Logger:         logger,
	}
	factory := func(ctx context.Context, id string, userID gateway.UserID) *session.Controller {
		return session.New(ctx, id, userID, client, opts)
	}

	// Build the router *with* the hub injected
	h := hub.NewHub(ctx, factory, logger)
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", server.Addr),
			zap.String("api_url", cfg.APIURL),
			zap.Duration("poll_interval", cfg.PollInterval))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", zap.Error(err))
		}
		if err := h.Shutdown(shutdownCtx); err != nil && !errors.Is(err, session.ErrClosed) {
			logger.Error("hub shutdown failed", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
