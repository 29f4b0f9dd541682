package openai

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// EngineName selects this backend in launcher.NewEngine.
const EngineName = "openai"

func init() {
	launcher.RegisterEngine(EngineName, func(ctx context.Context, args launcher.EngineArgs, opts launcher.EngineOptions) (launcher.Engine, error) {
		logrus.Infof("attaching to %s; requested TP=%d PP=%d DP=%d are fixed by the running server, not by this launcher",
			opts.Endpoint, args.TensorParallelSize, args.PipelineParallelSize, args.DataParallelSize)
		c := NewClient(opts.Endpoint, opts.APIKey, args.Model)
		if err := c.CheckModel(ctx); err != nil {
			return nil, err
		}
		return c, nil
	})
}
