package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Launcher runs the benchmark once: echo config, build the engine, generate the
// fixed batch, print the report. Execution is strictly linear.
type Launcher struct {
	// NewEngine builds the engine for the resolved arguments. Required.
	NewEngine func(ctx context.Context, args EngineArgs) (Engine, error)
	// Out receives the configuration echo and the report. Defaults to os.Stdout.
	Out io.Writer
	// Now is the clock read around the generate call. Defaults to time.Now.
	Now func() time.Time
}

// Run executes the benchmark for cfg. An engine failure ends the run with an
// error and no report; nothing is retried.
func (l *Launcher) Run(ctx context.Context, cfg Config) (*Report, error) {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}

	cfg.Print(out)
	if cfg.KnownLimitation != "" {
		logrus.Warnf("mode %s: %s", cfg.Mode, cfg.KnownLimitation)
	}

	args := cfg.EngineArgs()
	logrus.Debugf("constructing engine: %+v", args)
	engine, err := l.NewEngine(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("construct engine for %s: %w", args.Model, err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logrus.Warnf("engine shutdown: %v", err)
		}
	}()

	params := DefaultSamplingParams()
	prompts := FormatPrompts()

	start := now()
	outputs, err := engine.Generate(ctx, prompts, params)
	end := now()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if len(outputs) != len(prompts) {
		logrus.Warnf("engine returned %d outputs for %d prompts", len(outputs), len(prompts))
	}

	report := &Report{
		Config:      cfg,
		NumPrompts:  len(prompts),
		TotalTokens: CountTokens(outputs),
		Elapsed:     end.Sub(start),
	}
	report.Print(out)
	return report, nil
}
