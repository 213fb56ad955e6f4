package model

import (
	"time"
)

// JobStatus represents the status of the long-running pregeneration job
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobType represents the type of background job being executed
type JobType string

const (
	JobTypePregenerateRecommendations JobType = "pregenerate_recommendations"
)

// JobProgress is a pollable snapshot of a background job.
type JobProgress struct {
	RunID       string     `json:"run_id,omitempty"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Processed   int        `json:"processed"`
	Total       int        `json:"total"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GetProgressPercentage returns the progress as a percentage (0-100)
func (jp *JobProgress) GetProgressPercentage() float64 {
	if jp.Total == 0 {
		return 0
	}
	return float64(jp.Processed) / float64(jp.Total) * 100
}

// Active reports whether the job is currently running
func (jp *JobProgress) Active() bool {
	return jp.Status == JobStatusRunning
}
