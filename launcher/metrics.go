package launcher

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetricsFile exports the report in Prometheus text format, suitable for
// the node_exporter textfile collector. The file is replaced atomically.
func WriteMetricsFile(path string, r *Report) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"mode": string(r.Config.Mode), "model": r.Config.Model}

	tokens := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "vllm_launcher_generated_tokens",
		Help:        "Total tokens generated across the prompt batch",
		ConstLabels: labels,
	})
	elapsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "vllm_launcher_elapsed_seconds",
		Help:        "Wall-clock duration of the batch generate call",
		ConstLabels: labels,
	})
	throughput := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "vllm_launcher_throughput_tokens_per_second",
		Help:        "Generated tokens per second of wall-clock time",
		ConstLabels: labels,
	})
	parallel := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "vllm_launcher_parallel_size",
		Help:        "Parallelism width the engine was built with",
		ConstLabels: labels,
	}, []string{"dim"})

	for _, c := range []prometheus.Collector{tokens, elapsed, throughput, parallel} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}

	tokens.Set(float64(r.TotalTokens))
	elapsed.Set(r.Elapsed.Seconds())
	throughput.Set(r.Throughput())
	parallel.WithLabelValues("tensor").Set(float64(r.Config.TensorParallelSize))
	parallel.WithLabelValues("pipeline").Set(float64(r.Config.PipelineParallelSize))
	parallel.WithLabelValues("data").Set(float64(r.Config.DataParallelSize))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics file %s: %w", path, err)
	}
	return nil
}
