package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "CALLSCOUT_"
	envConfig = envPrefix + "CONFIG"
	// envNesting separates nested keys in variable names.
	envNesting = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if CALLSCOUT_CONFIG is set
//  3. env (prefix CALLSCOUT_, nested keys joined by "__")
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CALLSCOUT_WORKFLOW__MAX_ITERATIONS -> workflow.max_iterations
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, strings.ToLower(envNesting), ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format %q must be text or json", c.LogFormat)
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive")
	case c.MaxRuns < 0:
		return invalid("max_runs must not be negative")
	case c.Workflow.MaxIterations < 1:
		return invalid("workflow.max_iterations must be at least 1")
	case c.Workflow.TargetQuantity < 1:
		return invalid("workflow.target_quantity must be at least 1")
	case c.Workflow.RetrievalFailurePolicy != "degrade" && c.Workflow.RetrievalFailurePolicy != "fail":
		return invalid("workflow.retrieval_failure_policy %q must be degrade or fail", c.Workflow.RetrievalFailurePolicy)
	case c.Timeouts.Planner <= 0 || c.Timeouts.Retriever <= 0 || c.Timeouts.Reasoning <= 0 || c.Timeouts.Reporter <= 0:
		return invalid("timeouts must be positive")
	}

	s := c.Scoring
	if s.MonitorThreshold < 0 || s.ApplyThreshold > 10 ||
		s.ApplyThreshold <= s.ConsiderThreshold || s.ConsiderThreshold <= s.MonitorThreshold {
		return invalid("scoring thresholds must satisfy 0 <= monitor < consider < apply <= 10")
	}

	switch c.Planner.Kind {
	case "fallback":
	case "ollama":
		if c.Planner.BaseURL == "" {
			return invalid("planner.base_url is required for the ollama planner")
		}
	default:
		return invalid("planner.kind %q must be fallback or ollama", c.Planner.Kind)
	}

	switch c.Retriever.Kind {
	case "file":
	case "http":
		if c.Retriever.BaseURL == "" {
			return invalid("retriever.base_url is required for the http retriever")
		}
	default:
		return invalid("retriever.kind %q must be file or http", c.Retriever.Kind)
	}
	if c.Retriever.MaxRetries < 0 {
		return invalid("retriever.max_retries must not be negative")
	}

	switch c.Reasoning.Kind {
	case "rules", "none":
	case "ollama":
		if c.Reasoning.BaseURL == "" {
			return invalid("reasoning.base_url is required for the ollama service")
		}
	default:
		return invalid("reasoning.kind %q must be rules, ollama or none", c.Reasoning.Kind)
	}
	return nil
}
