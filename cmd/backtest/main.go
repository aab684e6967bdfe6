// Package main provides a CLI for running the truth-rule backtest harness
// against a universe of CSV-sourced bar files, one file per ticker,
// printing the cross-ticker aggregate accuracy metrics as JSON.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/songzhiyuan98/klinelens-go/internal/backtest"
	"github.com/songzhiyuan98/klinelens-go/internal/workers"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func main() {
	dataDir := flag.String("data", "", "Directory of per-ticker CSV bar files (filename without extension is the ticker)")
	timeframe := flag.String("timeframe", "1m", "Timeframe the bars represent (1m, 5m, 1d)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "-data is required")
		os.Exit(1)
	}

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	tf := types.Timeframe(*timeframe)
	if !tf.Valid() {
		logger.Fatal("invalid timeframe", zap.String("timeframe", *timeframe))
	}

	universe, err := loadUniverse(*dataDir)
	if err != nil {
		logger.Fatal("failed to load universe", zap.Error(err))
	}
	logger.Info("loaded universe", zap.Int("tickers", len(universe)))

	pool := workers.NewPool(logger, workers.DefaultPoolConfig("backtest"))
	pool.Start()
	defer pool.Stop()

	harness := backtest.NewHarness(logger)
	params := types.DefaultAnalysisParams()

	metrics, errs := harness.RunUniverse(universe, tf, params, pool)
	for _, err := range errs {
		logger.Warn("ticker backtest failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		logger.Fatal("failed to marshal metrics", zap.Error(err))
	}
	fmt.Println(string(out))
}

// loadUniverse reads every *.csv file in dir into a TickerBars entry,
// skipping the header row; columns are time,open,high,low,close,volume.
func loadUniverse(dir string) ([]backtest.TickerBars, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var universe []backtest.TickerBars
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		ticker := strings.TrimSuffix(entry.Name(), ".csv")
		bars, err := loadBarsCSV(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		universe = append(universe, backtest.TickerBars{Ticker: ticker, Bars: bars})
	}
	return universe, nil
}

func loadBarsCSV(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("expected a header row plus at least one bar")
	}

	bars := make([]types.Bar, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 6 {
			continue
		}
		t, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", row[0], err)
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closePrice, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)
		bars = append(bars, types.Bar{Time: t, Open: open, High: high, Low: low, Close: closePrice, Volume: volume})
	}
	return bars, nil
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
