// Package main provides the entry point for the klinelens-go gateway: an
// HTTP/WebSocket front door that fetches bars from a market data
// provider, runs the structure/breakout/behavior analysis pipeline, and
// drives one simulated-trader state machine per watched ticker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/songzhiyuan98/klinelens-go/internal/config"
	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional; env vars and defaults apply regardless)")
	host := flag.String("host", "", "Override server.host")
	port := flag.Int("port", 0, "Override server.port (0 = use config)")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting klinelens gateway",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Server.ProviderName),
		zap.String("defaultTimeframe", string(cfg.Server.DefaultTimeframe)),
	)

	provider, err := buildProvider(cfg.Server)
	if err != nil {
		logger.Fatal("failed to build market data provider", zap.Error(err))
	}

	store := gateway.NewBarStore(logger, provider, time.Minute)
	server := gateway.NewServer(logger, &cfg.Server, store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("gateway server error", zap.Error(err))
		}
	}()

	logger.Info("gateway started",
		zap.String("ws", fmt.Sprintf("ws://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Server.WebSocketPath)),
		zap.String("http", fmt.Sprintf("http://%s:%d/api/v1", cfg.Server.Host, cfg.Server.Port)),
	)

	<-sigChan
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during gateway shutdown", zap.Error(err))
	}

	logger.Info("gateway stopped")
}

func buildProvider(sc types.ServerConfig) (gateway.MarketDataProvider, error) {
	switch sc.ProviderName {
	case "", "rest":
		if sc.ProviderAPIURL == "" {
			return nil, fmt.Errorf("provider.api_url is required for the rest provider")
		}
		return gateway.NewRESTProvider("rest", sc.ProviderAPIURL, sc.ProviderAPIKey), nil
	case "alpaca":
		return gateway.NewAlpacaProvider(sc.ProviderAPIURL, sc.ProviderAPIKey, os.Getenv("ALPACA_API_SECRET")), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", sc.ProviderName)
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}
