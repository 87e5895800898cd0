package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stupiduntilnot/chatrelay/internal/config"
	"github.com/stupiduntilnot/chatrelay/internal/control"
	"github.com/stupiduntilnot/chatrelay/internal/discord"
	"github.com/stupiduntilnot/chatrelay/internal/generate"
	"github.com/stupiduntilnot/chatrelay/internal/pipeline"
	"github.com/stupiduntilnot/chatrelay/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[relaybot] %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[relaybot] %v", err)
	}
	defer logger.Sync()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer st.Close()
	if err := st.Init(context.Background()); err != nil {
		logger.Fatal("init store schema", zap.Error(err))
	}

	genTimeout := time.Duration(cfg.GenerateTimeoutSeconds) * time.Second
	engine := generate.NewClient(cfg.GenerateURL, generate.Config{
		Model:       cfg.Model,
		Device:      cfg.Device,
		MaxLength:   cfg.MaxLength,
		Temperature: cfg.Temperature,
		TopK:        cfg.TopK,
		TopP:        cfg.TopP,
	}, genTimeout+10*time.Second)
	limiter := control.NewLimiter(cfg.MaxConcurrentGenerations, genTimeout)

	adapter, err := discord.New(cfg.DiscordToken, logger)
	if err != nil {
		logger.Fatal("init discord adapter", zap.Error(err))
	}

	pipe := pipeline.New(adapter.SelfID(), engine, st, adapter, limiter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("relay starting",
		zap.String("model", cfg.Model),
		zap.String("device", cfg.Device),
		zap.String("db_path", cfg.DBPath),
		zap.Int("max_concurrent_generations", cfg.MaxConcurrentGenerations))

	if err := adapter.Run(ctx, pipe); err != nil {
		logger.Fatal("adapter stopped", zap.Error(err))
	}
	logger.Info("relay stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
