package dryrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/vllm-launcher/launcher"
)

func presetArgs(t *testing.T, m launcher.Mode) launcher.EngineArgs {
	t.Helper()
	cfg, err := launcher.Resolve(m, launcher.Overrides{})
	require.NoError(t, err)
	return cfg.EngineArgs()
}

func TestEngine_Generate_LengthsWithinMaxTokens(t *testing.T) {
	e, err := New(presetArgs(t, launcher.ModeSingle), testCoefficients(), 42)
	require.NoError(t, err)

	outputs, err := e.Generate(context.Background(), launcher.FormatPrompts(), launcher.DefaultSamplingParams())
	require.NoError(t, err)

	require.Len(t, outputs, 32)
	for i, out := range outputs {
		require.Len(t, out.Outputs, 1, "prompt %d", i)
		n := len(out.Outputs[0].TokenIDs)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 128)
		for _, id := range out.Outputs[0].TokenIDs {
			assert.True(t, id >= 0 && id < VocabSize)
		}
	}
	assert.Greater(t, e.SimulatedDuration().Microseconds(), int64(0))
}

func TestEngine_Generate_DeterministicPerSeed(t *testing.T) {
	run := func(seed int64) []launcher.RequestOutput {
		e, err := New(presetArgs(t, launcher.ModeSingle), testCoefficients(), seed)
		require.NoError(t, err)
		out, err := e.Generate(context.Background(), launcher.FormatPrompts(), launcher.DefaultSamplingParams())
		require.NoError(t, err)
		return out
	}
	a, b, c := run(7), run(7), run(8)
	assert.Equal(t, a, b, "same seed must produce identical outputs")
	assert.NotEqual(t, a, c, "different seeds should differ")
}

func TestEngine_Generate_DataParallelShortensSimulatedTime(t *testing.T) {
	// GIVEN the same seed for a 1-replica and a 4-replica engine
	single, err := New(presetArgs(t, launcher.ModeSingle), testCoefficients(), 3)
	require.NoError(t, err)
	dp, err := New(presetArgs(t, launcher.ModeDP), testCoefficients(), 3)
	require.NoError(t, err)

	outSingle, err := single.Generate(context.Background(), launcher.FormatPrompts(), launcher.DefaultSamplingParams())
	require.NoError(t, err)
	outDP, err := dp.Generate(context.Background(), launcher.FormatPrompts(), launcher.DefaultSamplingParams())
	require.NoError(t, err)

	// THEN token counts match and the split batch finishes no later
	assert.Equal(t, launcher.CountTokens(outSingle), launcher.CountTokens(outDP))
	assert.LessOrEqual(t, dp.SimulatedDuration(), single.SimulatedDuration())
}

func TestEngine_Generate_MultipleCandidates(t *testing.T) {
	e, err := New(presetArgs(t, launcher.ModeSingle), testCoefficients(), 1)
	require.NoError(t, err)
	params := launcher.DefaultSamplingParams()
	params.N = 3
	outputs, err := e.Generate(context.Background(), []string{"a", "b"}, params)
	require.NoError(t, err)
	assert.Len(t, outputs[0].Outputs, 3)
	assert.Len(t, outputs[1].Outputs, 3)
}

func TestEngine_Generate_CappedByModelLength(t *testing.T) {
	args := presetArgs(t, launcher.ModeSingle)
	args.MaxModelLen = 10
	e, err := New(args, testCoefficients(), 1)
	require.NoError(t, err)

	// a 32-character prompt is about 8 tokens, leaving room for 2
	outputs, err := e.Generate(context.Background(), []string{"0123456789abcdef0123456789abcdef"}, launcher.DefaultSamplingParams())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(outputs[0].Outputs[0].TokenIDs), 2)
}

func TestEngine_Generate_CancelledContext(t *testing.T) {
	e, err := New(presetArgs(t, launcher.ModeSingle), testCoefficients(), 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Generate(ctx, []string{"a"}, launcher.DefaultSamplingParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidParallelism_Rejected(t *testing.T) {
	args := presetArgs(t, launcher.ModeSingle)
	args.PipelineParallelSize = 0
	_, err := New(args, testCoefficients(), 1)
	require.Error(t, err)
}

func TestRegisteredFactory_BuildsEngine(t *testing.T) {
	eng, err := launcher.NewEngine(context.Background(), EngineName, presetArgs(t, launcher.ModeTP),
		launcher.EngineOptions{Seed: 5, DefaultsFilePath: "does-not-exist.yaml"})
	require.NoError(t, err)
	_, ok := eng.(*Engine)
	assert.True(t, ok)
	assert.NoError(t, eng.Close())
}
