package dryrun

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/vllm-launcher/launcher"
)

const sampleDefaults = `version: "1"
models:
  - id: meta-llama/Meta-Llama-3-8B-Instruct
    GPU: H100
    tensor_parallelism: 1
    vllm_version: vllm/vllm-openai:v0.8.4
    alpha_coeffs: [1, 2, 3]
    beta_coeffs: [4, 5, 6]
  - id: meta-llama/Llama-3.3-70B-Instruct
    GPU: H100
    tensor_parallelism: 4
    vllm_version: vllm/vllm-openai:v0.8.4
    alpha_coeffs: [7, 8, 9]
    beta_coeffs: [10, 11, 12]
`

func writeDefaults(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults_LookupByModelAndTP(t *testing.T) {
	d, err := LoadDefaults(writeDefaults(t, sampleDefaults))
	require.NoError(t, err)

	c, ok := d.Lookup("meta-llama/llama-3.3-70b-instruct", 4)
	require.True(t, ok, "lookup should ignore case")
	assert.Equal(t, []float64{7, 8, 9}, c.Alpha)
	assert.Equal(t, []float64{10, 11, 12}, c.Beta)

	_, ok = d.Lookup("meta-llama/Llama-3.3-70B-Instruct", 8)
	assert.False(t, ok, "TP must match")
}

func TestLoadDefaults_UnknownField_Rejected(t *testing.T) {
	// GIVEN a typo in a field name
	path := writeDefaults(t, "version: \"1\"\nmodels:\n  - id: x\n    alpha_coefs: [1, 2, 3]\n")

	// THEN strict parsing fails
	_, err := LoadDefaults(path)
	require.Error(t, err)
}

func TestResolveCoefficients_MissingFile_FallsBack(t *testing.T) {
	c, err := ResolveCoefficients(filepath.Join(t.TempDir(), "absent.yaml"), launcher.EngineArgs{Model: "m", TensorParallelSize: 1})
	require.NoError(t, err)
	assert.Equal(t, FallbackCoefficients(), c)
}

func TestResolveCoefficients_UnknownModel_FallsBack(t *testing.T) {
	c, err := ResolveCoefficients(writeDefaults(t, sampleDefaults), launcher.EngineArgs{Model: "foo/bar", TensorParallelSize: 1})
	require.NoError(t, err)
	assert.Equal(t, FallbackCoefficients(), c)
}

func TestResolveCoefficients_MalformedFile_Errors(t *testing.T) {
	_, err := ResolveCoefficients(writeDefaults(t, "models: [this is: not valid"), launcher.EngineArgs{Model: "m"})
	require.Error(t, err)
}

func TestRepositoryDefaultsFile_CoversPresets(t *testing.T) {
	// Skip if defaults.yaml not available
	path := filepath.Join("..", "..", DefaultsFilePath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("defaults.yaml not found, skipping")
	}
	d, err := LoadDefaults(path)
	require.NoError(t, err)
	for _, m := range launcher.Modes() {
		p, _ := launcher.LookupPreset(m)
		c, ok := d.Lookup(p.Model, p.TensorParallelSize)
		if assert.True(t, ok, "mode %s has no coefficients", m) {
			assert.NoError(t, c.Validate())
		}
	}
}
