// Package config defines service configuration and its koanf loader.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load layers a YAML file and environment variables over the defaults.
// - Components receive values from Config; they never read the environment.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers shared by all runs.
	WorkerCount int `koanf:"worker_count"`

	// MaxRuns bounds the runs kept in memory. Beyond it the oldest finished
	// run and its report are dropped. 0 keeps every run.
	MaxRuns int `koanf:"max_runs"`

	Workflow  Workflow  `koanf:"workflow"`
	Timeouts  Timeouts  `koanf:"timeouts"`
	Scoring   Scoring   `koanf:"scoring"`
	Planner   Planner   `koanf:"planner"`
	Retriever Retriever `koanf:"retriever"`
	Reasoning Reasoning `koanf:"reasoning"`
}

// Workflow bounds a run.
type Workflow struct {
	MaxIterations          int      `koanf:"max_iterations"`
	TargetQuantity         int      `koanf:"target_quantity"`
	TargetSources          []string `koanf:"target_sources"`
	RetrievalFailurePolicy string   `koanf:"retrieval_failure_policy"`
}

// Timeouts bound each collaborator call.
type Timeouts struct {
	Planner   time.Duration `koanf:"planner"`
	Retriever time.Duration `koanf:"retriever"`
	Reasoning time.Duration `koanf:"reasoning"`
	Reporter  time.Duration `koanf:"reporter"`
}

// Scoring holds the recommendation thresholds.
type Scoring struct {
	ApplyThreshold    float64 `koanf:"apply_threshold"`
	ConsiderThreshold float64 `koanf:"consider_threshold"`
	MonitorThreshold  float64 `koanf:"monitor_threshold"`
}

// Planner selects and configures the planner.
type Planner struct {
	// Kind is fallback or ollama. The ollama planner falls back to the
	// fallback plan whenever the model fails.
	Kind       string   `koanf:"kind"`
	Programmes []string `koanf:"programmes"`
	BaseURL    string   `koanf:"base_url"`
	Model      string   `koanf:"model"`
}

// Retriever selects and configures the record source.
type Retriever struct {
	// Kind is file or http.
	Kind        string `koanf:"kind"`
	CatalogPath string `koanf:"catalog_path"`
	BaseURL     string `koanf:"base_url"`
	MaxRetries  int    `koanf:"max_retries"`
}

// Reasoning selects and configures the reasoning service.
type Reasoning struct {
	// Kind is rules, ollama or none.
	Kind    string `koanf:"kind"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU() * 2,
		MaxRuns:     1000,
		Workflow: Workflow{
			MaxIterations:          3,
			TargetQuantity:         30,
			RetrievalFailurePolicy: "degrade",
		},
		Timeouts: Timeouts{
			Planner:   30 * time.Second,
			Retriever: 60 * time.Second,
			Reasoning: 20 * time.Second,
			Reporter:  10 * time.Second,
		},
		Scoring: Scoring{
			ApplyThreshold:    8.0,
			ConsiderThreshold: 6.0,
			MonitorThreshold:  4.0,
		},
		Planner: Planner{
			Kind:       "fallback",
			Programmes: []string{"Horizon Europe"},
			BaseURL:    "http://localhost:11434",
			Model:      "llama3.2:latest",
		},
		Retriever: Retriever{
			Kind:       "file",
			MaxRetries: 3,
		},
		Reasoning: Reasoning{
			Kind:    "rules",
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2:latest",
		},
	}
}
