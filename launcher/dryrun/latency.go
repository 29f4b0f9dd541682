package dryrun

import "time"

// BlackboxModel estimates engine time from trained alpha/beta regression coefficients.
// Beta coefficients estimate step time: beta0 + beta1*prefillTokens + beta2*decodeTokens.
// Alpha coefficients estimate overheads: alpha0 + alpha1*inputLen (queueing), alpha2 (output processing).
// All estimates are in microseconds.
type BlackboxModel struct {
	betaCoeffs  []float64
	alphaCoeffs []float64
}

// NewBlackboxModel validates c and returns a model over it.
func NewBlackboxModel(c Coefficients) (*BlackboxModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &BlackboxModel{betaCoeffs: c.Beta, alphaCoeffs: c.Alpha}, nil
}

// StepTime estimates one forward pass over the given prefill and decode token counts.
func (m *BlackboxModel) StepTime(prefillTokens, decodeTokens int) int64 {
	var totalStepTime float64
	totalStepTime += m.betaCoeffs[0]
	totalStepTime += m.betaCoeffs[1] * float64(prefillTokens)
	totalStepTime += m.betaCoeffs[2] * float64(decodeTokens)
	return int64(totalStepTime)
}

// QueueingTime estimates the arrival-to-queue delay for a prompt of inputLen tokens.
func (m *BlackboxModel) QueueingTime(inputLen int) int64 {
	var totalProcessingTime float64
	totalProcessingTime += m.alphaCoeffs[0]
	totalProcessingTime += m.alphaCoeffs[1] * float64(inputLen)
	return int64(totalProcessingTime)
}

// OutputTokenProcessingTime estimates per-token post-processing time.
func (m *BlackboxModel) OutputTokenProcessingTime() int64 {
	return int64(m.alphaCoeffs[2])
}

// Sequence is one candidate to generate: its prompt length and output length.
type Sequence struct {
	InputLen  int
	OutputLen int
}

// BatchTime estimates the time to run seqs as one continuous batch that all
// arrive at once: the slowest queueing delay, one prefill step over every
// prompt (which also emits each first token), then decode steps until the
// longest sequence finishes.
func (m *BlackboxModel) BatchTime(seqs []Sequence) time.Duration {
	if len(seqs) == 0 {
		return 0
	}
	var queueing, total int64
	prefill, longest := 0, 0
	for _, s := range seqs {
		if q := m.QueueingTime(s.InputLen); q > queueing {
			queueing = q
		}
		prefill += s.InputLen
		longest = max(longest, s.OutputLen)
	}
	total = queueing + m.StepTime(prefill, 0)
	for step := 1; step < longest; step++ {
		active := 0
		for _, s := range seqs {
			if s.OutputLen > step {
				active++
			}
		}
		total += m.StepTime(0, active)
	}
	total += m.OutputTokenProcessingTime()
	return time.Duration(total) * time.Microsecond
}
