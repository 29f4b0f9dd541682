package launcher

import (
	"errors"
	"fmt"
	"io"
)

// Mode names one of the fixed parallelism presets.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeTP     Mode = "tp"
	ModeDP     Mode = "dp"
	ModePPTP   Mode = "pp_tp"
)

// MaxModelLen is the maximum sequence length every engine is built with.
const MaxModelLen = 2048

// ErrUnknownMode is returned by ParseMode and Resolve for names outside the preset table.
var ErrUnknownMode = errors.New("unknown mode")

// Preset is the immutable configuration behind a Mode.
type Preset struct {
	Model                string
	TensorParallelSize   int
	PipelineParallelSize int
	DataParallelSize     int
	Description          string
	KnownLimitation      string // non-empty when the upstream engine is known to misbehave in this mode
}

const (
	llama8B  = "meta-llama/Meta-Llama-3-8B-Instruct"
	llama70B = "meta-llama/Llama-3.3-70B-Instruct"
)

// modeOrder fixes the order modes are listed in help text and errors.
var modeOrder = []Mode{ModeSingle, ModeTP, ModeDP, ModePPTP}

var presets = map[Mode]Preset{
	ModeSingle: {
		Model:                llama8B,
		TensorParallelSize:   1,
		PipelineParallelSize: 1,
		DataParallelSize:     1,
		Description:          "Single GPU, Llama 3 8B Instruct",
	},
	ModeTP: {
		Model:                llama70B,
		TensorParallelSize:   4,
		PipelineParallelSize: 1,
		DataParallelSize:     1,
		Description:          "Tensor Parallel (4-way), Llama 3.3 70B Instruct",
	},
	ModeDP: {
		Model:                llama8B,
		TensorParallelSize:   1,
		PipelineParallelSize: 1,
		DataParallelSize:     4,
		Description:          "Data Parallel (4-way), Llama 3 8B Instruct",
		KnownLimitation:      "data-parallel mode is currently not working in the upstream engine",
	},
	ModePPTP: {
		Model:                llama70B,
		TensorParallelSize:   4,
		PipelineParallelSize: 2,
		DataParallelSize:     1,
		Description:          "Pipeline(2) + Tensor(4) Llama 3.3 70B Instruct",
	},
}

// Modes returns every valid mode in display order.
func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

// ParseMode maps a CLI string to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := presets[m]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownMode, s)
	}
	return m, nil
}

// LookupPreset returns the preset for m.
func LookupPreset(m Mode) (Preset, bool) {
	p, ok := presets[m]
	return p, ok
}

// Overrides carries optional user-supplied replacements for preset fields.
// A nil field means "not provided". Tensor- and data-parallel sizes are not overridable.
type Overrides struct {
	Model                *string
	PipelineParallelSize *int
}

// Config is a preset with overrides applied.
type Config struct {
	Mode                 Mode
	Description          string
	KnownLimitation      string
	Model                string
	TensorParallelSize   int
	PipelineParallelSize int
	DataParallelSize     int
}

// Resolve applies overrides to the preset for mode.
func Resolve(mode Mode, o Overrides) (Config, error) {
	p, ok := presets[mode]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	cfg := Config{
		Mode:                 mode,
		Description:          p.Description,
		KnownLimitation:      p.KnownLimitation,
		Model:                p.Model,
		TensorParallelSize:   p.TensorParallelSize,
		PipelineParallelSize: p.PipelineParallelSize,
		DataParallelSize:     p.DataParallelSize,
	}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.PipelineParallelSize != nil {
		cfg.PipelineParallelSize = *o.PipelineParallelSize
	}
	return cfg, nil
}

// EngineArgs returns the constructor arguments for the inference engine.
func (c Config) EngineArgs() EngineArgs {
	return EngineArgs{
		Model:                c.Model,
		TensorParallelSize:   c.TensorParallelSize,
		PipelineParallelSize: c.PipelineParallelSize,
		DataParallelSize:     c.DataParallelSize,
		MaxModelLen:          MaxModelLen,
	}
}

// Print echoes the resolved configuration.
func (c Config) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Launching mode: %s\n", c.Mode)
	_, _ = fmt.Fprintf(w, "  Description: %s\n", c.Description)
	_, _ = fmt.Fprintf(w, "  Model: %s\n", c.Model)
	_, _ = fmt.Fprintf(w, "  TP size: %d, PP size: %d, DP size: %d\n",
		c.TensorParallelSize, c.PipelineParallelSize, c.DataParallelSize)
}
