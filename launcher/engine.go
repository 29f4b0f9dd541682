package launcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnknownEngine is returned by NewEngine when no backend is registered under the name.
var ErrUnknownEngine = errors.New("unknown engine")

// EngineArgs are the constructor arguments handed to the inference engine.
type EngineArgs struct {
	Model                string
	TensorParallelSize   int
	PipelineParallelSize int
	DataParallelSize     int
	MaxModelLen          int
}

// SamplingParams controls token selection during generation.
type SamplingParams struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
	N           int // candidates per prompt
}

// DefaultSamplingParams returns the fixed benchmark sampling configuration.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		MaxTokens:   128,
		Temperature: 1.0,
		Stop:        []string{StopSequence},
		N:           1,
	}
}

// CompletionOutput is one generated candidate.
type CompletionOutput struct {
	Text         string
	TokenIDs     []int
	FinishReason string
}

// RequestOutput holds every candidate generated for one prompt.
type RequestOutput struct {
	Prompt  string
	Outputs []CompletionOutput
}

// CountTokens sums the token-id counts across all candidates of all prompts.
func CountTokens(outputs []RequestOutput) int {
	total := 0
	for _, out := range outputs {
		for _, c := range out.Outputs {
			total += len(c.TokenIDs)
		}
	}
	return total
}

// Engine is the external inference engine as seen by the launcher.
// Generate blocks until the whole batch has been generated.
type Engine interface {
	Generate(ctx context.Context, prompts []string, params SamplingParams) ([]RequestOutput, error)
	Close() error
}

// EngineOptions carries backend-specific settings that are not part of EngineArgs.
// Each backend reads only the fields it needs.
type EngineOptions struct {
	Endpoint         string        // openai: base URL of a running server
	APIKey           string        // openai, server: bearer token
	VLLMBinary       string        // server: path to the vllm executable
	Host             string        // server: bind address
	Port             int           // server: listen port
	StartupTimeout   time.Duration // server: readiness deadline
	Seed             int64         // dryrun: RNG seed
	DefaultsFilePath string        // dryrun: latency coefficients
}

// EngineFactory builds an Engine. Construction may block (e.g. model loading).
type EngineFactory func(ctx context.Context, args EngineArgs, opts EngineOptions) (Engine, error)

var (
	registryMu      sync.RWMutex
	engineFactories = map[string]EngineFactory{}
)

// RegisterEngine makes a backend selectable by name. Called from backend init() functions.
// Registering the same name twice replaces the earlier factory.
func RegisterEngine(name string, f EngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	engineFactories[name] = f
}

// EngineNames lists registered backends in sorted order.
func EngineNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(engineFactories))
	for name := range engineFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine constructs the named backend.
func NewEngine(ctx context.Context, name string, args EngineArgs, opts EngineOptions) (Engine, error) {
	registryMu.RLock()
	f, ok := engineFactories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownEngine, name, strings.Join(EngineNames(), ", "))
	}
	return f(ctx, args, opts)
}
