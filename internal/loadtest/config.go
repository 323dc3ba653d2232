// Package loadtest drives a running callscout server with synthetic
// organization profiles and checks that every run finishes with a
// consistent ranking.
package loadtest

import "time"

// Config holds configuration for a load test.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumRuns      int           // Number of runs to start
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between status polls
	WaitTimeout  time.Duration // Maximum time one run may take
	OutputFile   string        // Optional file for the generated profiles
	Verbose      bool          // Log every finished run
}

// Defaults fills zero fields.
func (c *Config) Defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:9080"
	}
	if c.NumRuns <= 0 {
		c.NumRuns = 20
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Minute
	}
}

// Stats holds test statistics.
type Stats struct {
	ProfilesGenerated int
	RunsAccepted      int
	RunsRejected      int
	RunsCompleted     int
	RunsFailed        int
	RunsTimedOut      int
	ResultsRetrieved  int
	Inconsistent      int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
