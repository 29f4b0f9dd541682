package dryrun

import (
	"context"
	"errors"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// EngineName selects this backend in launcher.NewEngine.
const EngineName = "dryrun"

// ResolveCoefficients finds coefficients for args in the defaults file,
// falling back to the built-in set when the file is absent or has no entry.
// A present but malformed file is an error.
func ResolveCoefficients(path string, args launcher.EngineArgs) (Coefficients, error) {
	if path == "" {
		path = DefaultsFilePath
	}
	d, err := LoadDefaults(path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("dry run: %s not found, using built-in latency coefficients", path)
		return FallbackCoefficients(), nil
	}
	if err != nil {
		return Coefficients{}, err
	}
	if c, ok := d.Lookup(args.Model, args.TensorParallelSize); ok {
		return c, nil
	}
	logrus.Warnf("dry run: no coefficients for model=%s TP=%d in %s, using built-in set",
		args.Model, args.TensorParallelSize, path)
	return FallbackCoefficients(), nil
}

func init() {
	launcher.RegisterEngine(EngineName, func(_ context.Context, args launcher.EngineArgs, opts launcher.EngineOptions) (launcher.Engine, error) {
		coeffs, err := ResolveCoefficients(opts.DefaultsFilePath, args)
		if err != nil {
			return nil, err
		}
		return New(args, coeffs, opts.Seed)
	})
}
