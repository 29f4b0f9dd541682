package dryrun

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultsFilePath is where the CLI looks for coefficients unless told otherwise.
const DefaultsFilePath = "defaults.yaml"

// Defaults is the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Defaults struct {
	Version string       `yaml:"version"`
	Models  []ModelEntry `yaml:"models"`
}

// ModelEntry holds trained latency coefficients for one (model, TP) deployment.
type ModelEntry struct {
	ID                string    `yaml:"id"`
	GPU               string    `yaml:"GPU"`
	TensorParallelism int       `yaml:"tensor_parallelism"`
	VLLMVersion       string    `yaml:"vllm_version"`
	AlphaCoeffs       []float64 `yaml:"alpha_coeffs"`
	BetaCoeffs        []float64 `yaml:"beta_coeffs"`
}

// Coefficients are the blackbox regression coefficients, in microseconds.
type Coefficients struct {
	Alpha []float64 // alpha0 + alpha1*inputLen (queueing), alpha2 (output processing)
	Beta  []float64 // beta0 + beta1*prefillTokens + beta2*decodeTokens (step time)
}

// fallbackCoefficients approximate a single H100 running an 8B model.
var fallbackCoefficients = Coefficients{
	Alpha: []float64{1601.35, 3.51, 1805.54},
	Beta:  []float64{6910.42, 17.67, 2.84},
}

// FallbackCoefficients returns the built-in coefficients used when no entry matches.
func FallbackCoefficients() Coefficients {
	return Coefficients{
		Alpha: append([]float64(nil), fallbackCoefficients.Alpha...),
		Beta:  append([]float64(nil), fallbackCoefficients.Beta...),
	}
}

// LoadDefaults parses defaults.yaml with strict field checking so typos fail loudly.
func LoadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults file %s: %w", path, err)
	}
	var d Defaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	return &d, nil
}

// Lookup returns the coefficients for model at tensor parallelism tp.
// Model ids compare case-insensitively.
func (d *Defaults) Lookup(model string, tp int) (Coefficients, bool) {
	for _, m := range d.Models {
		if strings.EqualFold(m.ID, model) && m.TensorParallelism == tp {
			return Coefficients{Alpha: m.AlphaCoeffs, Beta: m.BetaCoeffs}, true
		}
	}
	return Coefficients{}, false
}

// Validate checks that both coefficient lists are long enough for the blackbox model.
func (c Coefficients) Validate() error {
	if len(c.Alpha) < 3 {
		return fmt.Errorf("need 3 alpha coefficients, got %d", len(c.Alpha))
	}
	if len(c.Beta) < 3 {
		return fmt.Errorf("need 3 beta coefficients, got %d", len(c.Beta))
	}
	return nil
}
