package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// envPrefix namespaces environment overrides, e.g. VLLM_LAUNCHER_ENDPOINT.
const envPrefix = "VLLM_LAUNCHER"

// settings holds everything besides the mode and its overrides.
type settings struct {
	Engine           string        `mapstructure:"engine"`
	Endpoint         string        `mapstructure:"endpoint"`
	APIKey           string        `mapstructure:"api-key"`
	VLLMBinary       string        `mapstructure:"vllm-binary"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	StartupTimeout   time.Duration `mapstructure:"startup-timeout"`
	Seed             int64         `mapstructure:"seed"`
	DefaultsFilePath string        `mapstructure:"defaults-filepath"`
	MetricsFile      string        `mapstructure:"metrics-file"`
	ResultsDB        string        `mapstructure:"results-db"`
	LogLevel         string        `mapstructure:"log"`
}

// settingKeys are the flags layered through viper. --mode, --model and
// --pipeline-parallel-size stay flag-only.
var settingKeys = []string{
	"engine", "endpoint", "api-key", "vllm-binary", "host", "port", "startup-timeout",
	"seed", "defaults-filepath", "metrics-file", "results-db", "log",
}

// loadSettings resolves settings with precedence: explicitly set flag,
// environment, config file (--config), flag default.
func loadSettings(fs *pflag.FlagSet) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range settingKeys {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &s, nil
}

func (s settings) engineOptions() launcher.EngineOptions {
	return launcher.EngineOptions{
		Endpoint:         s.Endpoint,
		APIKey:           s.APIKey,
		VLLMBinary:       s.VLLMBinary,
		Host:             s.Host,
		Port:             s.Port,
		StartupTimeout:   s.StartupTimeout,
		Seed:             s.Seed,
		DefaultsFilePath: s.DefaultsFilePath,
	}
}
