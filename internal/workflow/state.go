package workflow

import (
	"fmt"
	"time"

	"github.com/okian/callscout/internal/domain/model"
)

// State is a stage of the run state machine.
type State int

// States.
const (
	StateIntake State = iota
	StatePlanning
	StateRetrieval
	StateAnalysis
	StateReporting
	StateCompleted
	StateFailed
)

var stateNames = [...]string{ //nolint:gochecknoglobals // read-only table
	StateIntake:    "intake",
	StatePlanning:  "planning",
	StateRetrieval: "retrieval",
	StateAnalysis:  "analysis",
	StateReporting: "reporting",
	StateCompleted: "completed",
	StateFailed:    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateCompleted || s == StateFailed }

// transitions lists every legal edge. Any state may fail.
var transitions = map[State][]State{ //nolint:gochecknoglobals // read-only table
	StateIntake:    {StatePlanning, StateFailed},
	StatePlanning:  {StateRetrieval, StateFailed},
	StateRetrieval: {StateAnalysis, StateFailed},
	StateAnalysis:  {StatePlanning, StateReporting, StateFailed},
	StateReporting: {StateCompleted, StateFailed},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is the coarse lifecycle of a run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// FailurePolicy decides what a retrieval error does to a run.
type FailurePolicy string

// Retrieval failure policies.
const (
	PolicyDegrade FailurePolicy = "degrade"
	PolicyFail    FailurePolicy = "fail"
)

// IterationState is the mutable state a run carries between iterations.
// Iteration never decreases.
type IterationState struct {
	Iteration     int
	MaxIterations int
	Feedback      string
	Plan          model.Plan
	Records       []model.OpportunityRecord
	Accumulated   []model.AnalyzedOpportunity
	Decisions     []model.ReflectionDecision
}

// RunStatus is the externally visible snapshot of a run.
type RunStatus struct {
	RunID          string              `json:"run_id"`
	Status         Status              `json:"status"`
	CurrentStage   State               `json:"current_stage"`
	IterationCount int                 `json:"iteration_count"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	Degradations   []model.Degradation `json:"degradations"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
}

// Result is everything a finished run produced.
type Result struct {
	Status    RunStatus                   `json:"status"`
	Results   []model.AnalyzedOpportunity `json:"results"`
	Decisions []model.ReflectionDecision  `json:"decisions"`
}
