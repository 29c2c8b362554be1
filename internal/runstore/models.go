package runstore

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle of one sample's job.
type JobStatus string

const (
	StatusPlanned   JobStatus = "planned"
	StatusTrimmed   JobStatus = "trimmed"
	StatusSubmitted JobStatus = "submitted"
	StatusExecuting JobStatus = "executing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// RunStatus represents the state of a run as a whole.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// validTransitions lists the allowed job state moves. Failure is
// reachable from any non-terminal state and is itself terminal.
var validTransitions = map[JobStatus][]JobStatus{
	StatusPlanned:   {StatusTrimmed, StatusFailed},
	StatusTrimmed:   {StatusSubmitted, StatusExecuting, StatusFailed},
	StatusSubmitted: {StatusCompleted, StatusFailed},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

func transitionAllowed(from, to JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Run is one orchestrator invocation.
type Run struct {
	ID          string
	InputDir    string
	OutputDir   string
	Layout      string
	Compression string
	Target      string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Job is one sample's progress within a run.
type Job struct {
	RunID     string
	Sample    string
	Status    JobStatus
	Error     string
	UpdatedAt time.Time
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
