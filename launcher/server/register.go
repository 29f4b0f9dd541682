package server

import (
	"context"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// EngineName selects this backend in launcher.NewEngine.
const EngineName = "server"

// ConfigFromOptions overlays the non-zero launcher options on DefaultConfig.
func ConfigFromOptions(opts launcher.EngineOptions) Config {
	cfg := DefaultConfig()
	if opts.VLLMBinary != "" {
		cfg.Binary = opts.VLLMBinary
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.StartupTimeout != 0 {
		cfg.StartupTimeout = opts.StartupTimeout
	}
	cfg.APIKey = opts.APIKey
	return cfg
}

func init() {
	launcher.RegisterEngine(EngineName, func(ctx context.Context, args launcher.EngineArgs, opts launcher.EngineOptions) (launcher.Engine, error) {
		return Start(ctx, args, ConfigFromOptions(opts))
	})
}
