package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"scriptflow/internal/analysis"
	"scriptflow/internal/api"
	"scriptflow/internal/config"
	"scriptflow/internal/executor"
	"scriptflow/internal/llm"
	"scriptflow/internal/monitor"
	"scriptflow/internal/report"
	"scriptflow/internal/storage"
	"scriptflow/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults")
		cfg = config.DefaultConfig()
	}

	metrics := monitor.NewMetrics()
	mon := monitor.New(cfg.Execution.HistorySize).WithMetrics(metrics)

	executions := executor.NewEngine(
		store.NewMemoryStore[*executor.Result](),
		executor.WithObserver(mon),
		executor.WithDefaultTimeout(cfg.Execution.DefaultTimeout),
		executor.WithMaxTimeout(cfg.Execution.MaxTimeout),
		executor.WithMaxBuffer(cfg.Execution.MaxBuffer),
	)

	var client llm.Client
	if cfg.Analysis.EnableAI {
		if cfg.Analysis.Provider != "" {
			client, err = llm.New(cfg.Analysis.Provider, providerKeyFromEnv(cfg.Analysis.Provider), cfg.Analysis.Model)
		} else {
			client, err = llm.NewFromEnv()
		}
		if err != nil {
			log.Warn().Err(err).Msg("LLM backend unavailable, AI analyses will degrade")
		}
	}
	analyses := analysis.NewEngine(
		store.NewMemoryStore[*analysis.Record](),
		analysis.NewAIAnalyzer(client),
	).WithMetrics(metrics)

	reports := report.NewEngine().WithMetrics(metrics)

	var writer *storage.Writer
	if cfg.Storage.Enabled {
		fileStore, storeErr := storage.NewFileStore(cfg.Storage.Dir)
		if storeErr != nil {
			log.Fatal().Err(storeErr).Str("dir", cfg.Storage.Dir).Msg("failed to open storage")
		}
		writer = storage.NewWriter(fileStore, cfg.Storage.BufferSize)
		writer.Start()
	}

	handlers := api.NewHandlers(executions, analyses, reports, mon, writer)
	server := api.NewServer(cfg, handlers, metrics)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	if writer != nil {
		writer.Flush(5 * time.Second)
	}
	log.Info().Msg("server stopped")
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case llm.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
