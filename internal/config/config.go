// Package config loads the gateway's ServerConfig and the orchestrator's
// default AnalysisParams from a YAML file overridable by KLINELENS_*
// environment variables, using an instance-scoped viper with
// SetConfigFile/ReadInConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// Config is everything cmd/server needs to boot: the HTTP/WS listener
// settings plus the analysis defaults applied when a request doesn't
// override them.
type Config struct {
	Server types.ServerConfig
	Params types.AnalysisParams
	LogLevel string
}

// Load reads configPath (a YAML file; pass "" to rely on defaults plus
// environment alone) into a Config, applying defaults first so a missing
// or partial file still produces a usable Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("klinelens")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configPath, err)
		}
	}

	cfg := &Config{
		Server: types.ServerConfig{
			Host:             v.GetString("server.host"),
			Port:             v.GetInt("server.port"),
			WebSocketPath:    v.GetString("server.websocket_path"),
			ReadTimeout:      v.GetDuration("server.read_timeout"),
			WriteTimeout:     v.GetDuration("server.write_timeout"),
			MaxConnections:   v.GetInt("server.max_connections"),
			EnableMetrics:    v.GetBool("server.enable_metrics"),
			MetricsPort:      v.GetInt("server.metrics_port"),
			ProviderName:     v.GetString("provider.name"),
			ProviderAPIKey:   v.GetString("provider.api_key"),
			ProviderAPIURL:   v.GetString("provider.api_url"),
			DefaultTimeframe: types.Timeframe(v.GetString("server.default_timeframe")),
		},
		Params: types.AnalysisParams{
			ATRPeriod:            v.GetInt("params.atr_period"),
			VolumePeriod:         v.GetInt("params.volume_period"),
			SwingN:               v.GetInt("params.swing_n"),
			RegimeM:              v.GetInt("params.regime_m"),
			MaxZones:             v.GetInt("params.max_zones"),
			VolumeThreshold:      v.GetFloat64("params.volume_threshold"),
			ResultThreshold:      v.GetFloat64("params.result_threshold"),
			ConfirmCloses:        v.GetInt("params.confirm_closes"),
			FakeoutBars:          v.GetInt("params.fakeout_bars"),
			BehaviorLookback:     v.GetInt("params.behavior_lookback"),
			ProbabilityThreshold: v.GetFloat64("params.probability_threshold"),
		},
		LogLevel: v.GetString("log_level"),
	}

	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if !cfg.Server.DefaultTimeframe.Valid() {
		cfg.Server.DefaultTimeframe = types.Timeframe1m
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.max_connections", 1000)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.default_timeframe", "1m")

	v.SetDefault("provider.name", "rest")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.api_url", "")

	defaults := types.DefaultAnalysisParams()
	v.SetDefault("params.atr_period", defaults.ATRPeriod)
	v.SetDefault("params.volume_period", defaults.VolumePeriod)
	v.SetDefault("params.swing_n", defaults.SwingN)
	v.SetDefault("params.regime_m", defaults.RegimeM)
	v.SetDefault("params.max_zones", defaults.MaxZones)
	v.SetDefault("params.volume_threshold", defaults.VolumeThreshold)
	v.SetDefault("params.result_threshold", defaults.ResultThreshold)
	v.SetDefault("params.confirm_closes", defaults.ConfirmCloses)
	v.SetDefault("params.fakeout_bars", defaults.FakeoutBars)
	v.SetDefault("params.behavior_lookback", defaults.BehaviorLookback)
	v.SetDefault("params.probability_threshold", defaults.ProbabilityThreshold)

	v.SetDefault("log_level", "info")
}
