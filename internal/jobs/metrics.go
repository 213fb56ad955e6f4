package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/tagsearch/internal/metrics"
	"github.com/gcbaptista/tagsearch/model"
)

// JobMetricsData is a copy-safe snapshot of JobMetrics
type JobMetricsData struct {
	RunsStarted     int64         `json:"runs_started"`
	RunsCompleted   int64         `json:"runs_completed"`
	RunsFailed      int64         `json:"runs_failed"`
	RunsRejected    int64         `json:"runs_rejected"`
	LastDuration    time.Duration `json:"last_duration_ns"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// JobMetrics tracks run outcomes for one job type and mirrors them to Prometheus.
type JobMetrics struct {
	mu            sync.RWMutex
	jobType       model.JobType
	data          JobMetricsData
	totalDuration time.Duration
}

// NewJobMetrics creates a new metrics collector
func NewJobMetrics(jobType model.JobType) *JobMetrics {
	return &JobMetrics{jobType: jobType, data: JobMetricsData{LastUpdated: time.Now()}}
}

// RecordStarted counts a run that acquired the running state
func (m *JobMetrics) RecordStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.RunsStarted++
	m.data.LastUpdated = time.Now()
	metrics.JobsRunning.Inc()
}

// RecordRejected counts a start refused because a run was active
func (m *JobMetrics) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.RunsRejected++
	m.data.LastUpdated = time.Now()
}

// RecordFinished records a finished run with its final status
func (m *JobMetrics) RecordFinished(status model.JobStatus, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status == model.JobStatusCompleted {
		m.data.RunsCompleted++
	} else {
		m.data.RunsFailed++
	}
	m.totalDuration += duration
	m.data.LastDuration = duration
	if finished := m.data.RunsCompleted + m.data.RunsFailed; finished > 0 {
		m.data.AverageDuration = m.totalDuration / time.Duration(finished)
	}
	m.data.LastUpdated = time.Now()

	metrics.JobsRunning.Dec()
	metrics.JobRuns.WithLabelValues(string(m.jobType), string(status)).Inc()
	metrics.JobDuration.WithLabelValues(string(m.jobType)).Observe(duration.Seconds())
}

// GetMetrics returns a snapshot
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// GetSuccessRate returns completed runs as a percentage of finished runs
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	finished := m.data.RunsCompleted + m.data.RunsFailed
	if finished == 0 {
		return 0
	}
	return float64(m.data.RunsCompleted) / float64(finished) * 100
}
