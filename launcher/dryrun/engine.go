// Package dryrun is an engine backend that needs no GPU. It returns
// deterministic synthetic completions and estimates how long a real engine
// would take using blackbox latency coefficients.
package dryrun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/vllm-launcher/launcher"
)

// VocabSize matches the Llama 3 tokenizer.
const VocabSize = 128256

// Engine produces synthetic outputs for a prompt batch.
type Engine struct {
	args      launcher.EngineArgs
	latency   *BlackboxModel
	rng       *PartitionedRNG
	simulated time.Duration
}

// New validates args the way the real engine would reject them and builds a dry-run engine.
func New(args launcher.EngineArgs, coeffs Coefficients, seed int64) (*Engine, error) {
	if args.Model == "" {
		return nil, errors.New("model must be set")
	}
	if args.TensorParallelSize < 1 || args.PipelineParallelSize < 1 || args.DataParallelSize < 1 {
		return nil, fmt.Errorf("parallel sizes must be >= 1, got TP=%d PP=%d DP=%d",
			args.TensorParallelSize, args.PipelineParallelSize, args.DataParallelSize)
	}
	if args.MaxModelLen < 1 {
		return nil, fmt.Errorf("max model length must be >= 1, got %d", args.MaxModelLen)
	}
	model, err := NewBlackboxModel(coeffs)
	if err != nil {
		return nil, fmt.Errorf("latency coefficients: %w", err)
	}
	return &Engine{
		args:    args,
		latency: model,
		rng:     NewPartitionedRNG(seed),
	}, nil
}

// approxTokens estimates a prompt's token count at four characters per token.
func approxTokens(prompt string) int {
	return (len(prompt) + 3) / 4
}

// Generate draws each candidate's length uniformly from [1, MaxTokens], capped
// so prompt plus output fits in the model length, and fills it with random ids.
// Prompts are spread round-robin over data-parallel replicas; the simulated
// time is that of the slowest replica.
func (e *Engine) Generate(ctx context.Context, prompts []string, params launcher.SamplingParams) ([]launcher.RequestOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := max(params.N, 1)
	maxTokens := max(params.MaxTokens, 1)
	lengths := e.rng.ForSubsystem(SubsystemOutputLength)
	ids := e.rng.ForSubsystem(SubsystemTokenIDs)

	replicas := make([][]Sequence, e.args.DataParallelSize)
	outputs := make([]launcher.RequestOutput, len(prompts))
	for i, p := range prompts {
		inputLen := approxTokens(p)
		outputs[i].Prompt = p
		for c := 0; c < n; c++ {
			length := 1 + lengths.Intn(maxTokens)
			finish := "stop"
			if length == maxTokens {
				finish = "length"
			}
			if room := e.args.MaxModelLen - inputLen; length > room {
				length = max(room, 0)
				finish = "length"
			}
			tokens := make([]int, length)
			for j := range tokens {
				tokens[j] = ids.Intn(VocabSize)
			}
			outputs[i].Outputs = append(outputs[i].Outputs, launcher.CompletionOutput{
				Text:         fmt.Sprintf("[dry-run: %d tokens]", length),
				TokenIDs:     tokens,
				FinishReason: finish,
			})
			r := i % e.args.DataParallelSize
			replicas[r] = append(replicas[r], Sequence{InputLen: inputLen, OutputLen: length})
		}
	}

	var slowest time.Duration
	for _, seqs := range replicas {
		slowest = max(slowest, e.latency.BatchTime(seqs))
	}
	e.simulated = slowest

	total := launcher.CountTokens(outputs)
	var tps float64
	if slowest > 0 {
		tps = float64(total) / slowest.Seconds()
	}
	logrus.Infof("dry run: %d tokens; a real engine would take about %s (%.2f tokens/sec)", total, slowest, tps)
	return outputs, nil
}

// SimulatedDuration is the estimated engine time of the last Generate call.
func (e *Engine) SimulatedDuration() time.Duration {
	return e.simulated
}

// Close is a no-op.
func (e *Engine) Close() error {
	return nil
}
