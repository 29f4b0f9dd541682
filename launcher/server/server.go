// Package server runs `vllm serve` as a child process with the resolved
// parallelism flags and generates through its OpenAI-compatible endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/inference-sim/vllm-launcher/launcher"
	"github.com/inference-sim/vllm-launcher/launcher/openai"
)

// ErrExitedBeforeReady is returned when the child process exits during startup.
var ErrExitedBeforeReady = errors.New("vllm server exited before becoming ready")

// Config controls how the child process is started and supervised.
type Config struct {
	Binary         string        `validate:"required"`
	Host           string        `validate:"required,hostname|ip"`
	Port           int           `validate:"min=1,max=65535"`
	APIKey         string        `validate:"-"`
	StartupTimeout time.Duration `validate:"gt=0"`
	HealthInterval time.Duration `validate:"gt=0"`
	ShutdownGrace  time.Duration `validate:"gte=0"`
	Output         io.Writer     `validate:"-"` // child stdout and stderr; defaults to os.Stderr
}

// DefaultConfig returns the settings used when the CLI leaves them unset.
func DefaultConfig() Config {
	return Config{
		Binary:         "vllm",
		Host:           "127.0.0.1",
		Port:           8000,
		StartupTimeout: 20 * time.Minute,
		HealthInterval: 2 * time.Second,
		ShutdownGrace:  30 * time.Second,
	}
}

var validate = validator.New()

// Args returns the `vllm serve` argument vector for the engine arguments.
func Args(args launcher.EngineArgs, cfg Config) []string {
	out := []string{
		"serve", args.Model,
		"--tensor-parallel-size", strconv.Itoa(args.TensorParallelSize),
		"--pipeline-parallel-size", strconv.Itoa(args.PipelineParallelSize),
		"--data-parallel-size", strconv.Itoa(args.DataParallelSize),
		"--max-model-len", strconv.Itoa(args.MaxModelLen),
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
	}
	if cfg.APIKey != "" {
		out = append(out, "--api-key", cfg.APIKey)
	}
	return out
}

// Server is a running `vllm serve` child process.
type Server struct {
	*openai.Client

	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
	grace   time.Duration
}

// Start launches the child process and blocks until /health answers 200,
// the process exits, or StartupTimeout elapses. On failure the process is stopped.
func Start(ctx context.Context, args launcher.EngineArgs, cfg Config) (*Server, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	cmd := exec.Command(cfg.Binary, Args(args, cfg)...)
	cmd.Stdout = out
	cmd.Stderr = out
	logrus.Infof("starting %s %v", cfg.Binary, cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Binary, err)
	}

	baseURL := "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	s := &Server{
		Client: openai.NewClient(baseURL, cfg.APIKey, args.Model),
		cmd:    cmd,
		exited: make(chan struct{}),
		grace:  cfg.ShutdownGrace,
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()

	if err := s.waitReady(ctx, baseURL+"/health", cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	logrus.Infof("vllm server ready at %s (pid %d)", baseURL, cmd.Process.Pid)
	return s, nil
}

func (s *Server) waitReady(ctx context.Context, healthURL string, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(cfg.HealthInterval), 1)
	probe := &http.Client{Timeout: cfg.HealthInterval}
	for {
		// Wait fails early when the next token lies past the deadline.
		if err := limiter.Wait(ctx); err != nil {
			select {
			case <-s.exited:
				return fmt.Errorf("%w: %v", ErrExitedBeforeReady, s.waitErr)
			case <-ctx.Done():
				return fmt.Errorf("waiting for %s: %w", healthURL, ctx.Err())
			}
		}
		select {
		case <-s.exited:
			return fmt.Errorf("%w: %v", ErrExitedBeforeReady, s.waitErr)
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("create health request: %w", err)
		}
		resp, err := probe.Do(req)
		if err != nil {
			logrus.Debugf("health probe: %v", err)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		logrus.Debugf("health probe: HTTP %d", resp.StatusCode)
	}
}

// Close interrupts the child, waits up to the grace period, then kills it.
// Closing an already-exited server is a no-op.
func (s *Server) Close() error {
	select {
	case <-s.exited:
		return nil
	default:
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		logrus.Debugf("interrupt vllm server: %v", err)
	}
	select {
	case <-s.exited:
		return nil
	case <-time.After(s.grace):
	}

	logrus.Warnf("vllm server did not stop within %s; killing pid %d", s.grace, s.cmd.Process.Pid)
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill vllm server: %w", err)
	}
	<-s.exited
	return nil
}
