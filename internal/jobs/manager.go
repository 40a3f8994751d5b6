package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one unit of pipeline work, typically the training and
// evaluation of a single model.
type Job struct {
	ID          string
	Type        string
	Status      JobStatus
	Progress    float64
	CreatedAt   time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	Error       error
	Result      any
	Description string
	Logs        []string
	mu          sync.RWMutex
}

// Summary is a point-in-time copy of a job, safe to serialise.
type Summary struct {
	ID          string    `yaml:"id"`
	Type        string    `yaml:"type"`
	Description string    `yaml:"description"`
	Status      JobStatus `yaml:"status"`
	Progress    float64   `yaml:"progress"`
	StartTime   time.Time `yaml:"start_time,omitempty"`
	EndTime     time.Time `yaml:"end_time,omitempty"`
	Duration    string    `yaml:"duration,omitempty"`
	Error       string    `yaml:"error,omitempty"`
	Logs        []string  `yaml:"logs,omitempty"`
}

// Manager keeps jobs in creation order.
type Manager struct {
	jobs  map[string]*Job
	order []string
	mu    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
	}
}

func (m *Manager) CreateJob(jobType, description string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobID := fmt.Sprintf("job_%s_%d", jobType, len(m.order)+1)
	job := &Job{
		ID:          jobID,
		Type:        jobType,
		Status:      JobPending,
		CreatedAt:   time.Now(),
		Description: description,
		Logs:        []string{},
	}

	m.jobs[jobID] = job
	m.order = append(m.order, jobID)
	return job
}

func (m *Manager) GetJob(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	return job, exists
}

func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id])
	}
	return jobs
}

func (m *Manager) Summaries() []Summary {
	jobs := m.ListJobs()
	summaries := make([]Summary, len(jobs))
	for i, job := range jobs {
		summaries[i] = job.Summary()
	}
	return summaries
}

// Counts returns the number of jobs per status.
func (m *Manager) Counts() map[JobStatus]int {
	counts := make(map[JobStatus]int)
	for _, job := range m.ListJobs() {
		counts[job.GetStatus()]++
	}
	return counts
}

func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != JobPending {
		return eris.Errorf("jobs: %s is %s, not pending", j.ID, j.Status)
	}
	now := time.Now()
	j.Status = JobRunning
	j.StartTime = &now
	return nil
}

func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	if status == JobCompleted || status == JobFailed {
		now := time.Now()
		j.EndTime = &now
	}
	if status == JobCompleted {
		j.Progress = 1
	}
}

func (j *Job) SetProgress(progress float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = progress
}

func (j *Job) AddLog(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	timestamp := time.Now().Format("15:04:05")
	j.Logs = append(j.Logs, fmt.Sprintf("[%s] %s", timestamp, message))
}

func (j *Job) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = err
	j.Status = JobFailed
	now := time.Now()
	j.EndTime = &now
}

func (j *Job) SetResult(result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = result
}

func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

func (j *Job) GetResult() any {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Result
}

func (j *Job) Summary() Summary {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Summary{
		ID:          j.ID,
		Type:        j.Type,
		Description: j.Description,
		Status:      j.Status,
		Progress:    j.Progress,
		Logs:        append([]string(nil), j.Logs...),
	}
	if j.StartTime != nil {
		s.StartTime = *j.StartTime
	}
	if j.EndTime != nil {
		s.EndTime = *j.EndTime
		if j.StartTime != nil {
			s.Duration = j.EndTime.Sub(*j.StartTime).String()
		}
	}
	if j.Error != nil {
		s.Error = j.Error.Error()
	}
	return s
}
