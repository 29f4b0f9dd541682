package launcher

import (
	"fmt"
	"io"
	"time"
)

// Report summarises one generation call.
type Report struct {
	Config      Config
	NumPrompts  int
	TotalTokens int
	Elapsed     time.Duration
}

// Throughput returns generated tokens per wall-clock second, or 0 when no time elapsed.
func (r *Report) Throughput() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.TotalTokens) / secs
}

// Print writes the throughput summary.
func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Total generated tokens: %d\n", r.TotalTokens)
	_, _ = fmt.Fprintf(w, "Elapsed time: %.2f seconds\n", r.Elapsed.Seconds())
	_, _ = fmt.Fprintf(w, "Throughput: %.2f tokens/sec\n", r.Throughput())
}
