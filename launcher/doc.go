// Package launcher configures and drives a single offline vLLM benchmark run.
//
// # Reading Guide
//
//   - preset.go: the four parallelism presets and override resolution
//   - prompts.go: the fixed prompt batch and chat template
//   - engine.go: the Engine interface and backend registry
//   - launcher.go: the linear run (echo config, build engine, generate, report)
//
// # Backends
//
// Engine implementations live in sub-packages and register themselves by name
// via init():
//   - launcher/server/: spawns `vllm serve` with the resolved parallelism flags
//   - launcher/openai/: talks to an already-running OpenAI-compatible server
//   - launcher/dryrun/: synthetic outputs with a blackbox latency estimate
//
// Importing a backend package for side effects makes it selectable through
// NewEngine.
package launcher
