// internal/api/job/store.go
package job

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/signalbook/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job is a background task started from the API, such as an archive run.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     Status     `json:"status"`
	Result     any        `json:"result,omitempty"`
	Error      *Failure   `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Failure describes why a job failed.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// Done reports whether the job has finished.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// Store manages async jobs. Finished jobs older than ttl are dropped, and
// the oldest job is evicted when the store is full.
type Store struct {
	jobs    map[string]*Job
	order   []string // insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewStore creates a new job store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a pending job and returns a copy of it.
func (s *Store) Create(jobType string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return *job
}

// prune drops finished jobs past their ttl. Callers hold mu.
func (s *Store) prune() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Done() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, core.ErrJobNotFound
	}
	return *job, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}

	fn(job)
	job.UpdatedAt = s.now()
	if job.Done() && job.FinishedAt == nil {
		t := job.UpdatedAt
		job.FinishedAt = &t
	}
	return nil
}

// List returns all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Run creates a job and executes fn in the background. The job records
// fn's result, or its error as a Failure.
func (s *Store) Run(ctx context.Context, jobType string, fn func(context.Context) (any, error)) Job {
	job := s.Create(jobType)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Update(job.ID, func(j *Job) { j.Status = StatusRunning })

		result, err := fn(ctx)
		s.Update(job.ID, func(j *Job) {
			if err != nil {
				j.Status = StatusFailed
				j.Error = failureOf(err)
				return
			}
			j.Status = StatusComplete
			j.Result = result
		})
	}()

	return job
}

// Wait blocks until every job started by Run has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func failureOf(err error) *Failure {
	var ce *core.Error
	if !errors.As(err, &ce) {
		return &Failure{Code: "INTERNAL_ERROR", Message: err.Error()}
	}
	f := &Failure{Code: ce.Code, Message: ce.Message}
	if ce.Cause != nil {
		f.Cause = ce.Cause.Error()
	}
	return f
}
